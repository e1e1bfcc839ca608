package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/dealerdesk/dealerdesk.go/pkg/mock"
	"github.com/dealerdesk/dealerdesk.go/pkg/models"
	"github.com/dealerdesk/dealerdesk.go/pkg/resources"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
	"github.com/dealerdesk/dealerdesk.go/pkg/service"
	"github.com/dealerdesk/dealerdesk.go/pkg/transport"
)

type LoginCmd struct {
	Username string `arg:"" help:"Account name."`
	Password string `help:"Password, prompted for when empty." env:"DEALERDESK_PASSWORD"`
}

func (c *LoginCmd) Run(g *Globals) error {
	password := c.Password
	if password == "" {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return fmt.Errorf("no password given and stdin is not a terminal")
		}
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		password = string(raw)
	}

	ctx, client, done, err := g.client()
	if err != nil {
		return err
	}
	defer done()
	if err := client.Login(ctx, c.Username, password); err != nil {
		return err
	}
	claims, _ := client.Auth.Claims()
	fmt.Fprintf(g.stdout(), "signed in as user %d (%s)\n", claims.UserID, claims.Role)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(g *Globals) error {
	ctx, client, done, err := g.client()
	if err != nil {
		return err
	}
	defer done()
	return client.Logout(ctx)
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(g *Globals) error {
	_, client, done, err := g.client()
	if err != nil {
		return err
	}
	defer done()
	claims, ok := client.Auth.Claims()
	if !ok {
		return fmt.Errorf("not signed in")
	}
	return printRecords(g.stdout(), g.JSON, []models.Record{{
		"user_id":     claims.UserID,
		"role":        claims.Role,
		"permissions": strings.Join(client.Auth.Permissions(), " "),
	}})
}

// lookup returns the registry together with the named resource.
func lookup(g *Globals, name string) (*resources.Registry, resources.Resource, error) {
	reg, err := g.registry()
	if err != nil {
		return nil, resources.Resource{}, err
	}
	res, err := reg.Resource(name)
	return reg, res, err
}

type GetCmd struct {
	Resource string `arg:"" help:"Resource name."`
	ID       string `arg:"" help:"Identifier."`
	Dummy    bool   `help:"Return a placeholder instead of calling the API."`
}

func (c *GetCmd) Run(g *Globals) error {
	ctx, client, done, err := g.client()
	if err != nil {
		return err
	}
	defer done()
	reg, res, err := lookup(g, c.Resource)
	if err != nil {
		return err
	}
	svc, err := reg.Reader(c.Resource, client.Transport, client.ServiceOptions()...)
	if err != nil {
		return err
	}
	id, err := models.ParseIdentifier(res.Descriptor.Kind, c.ID)
	if err != nil {
		return err
	}
	var rec models.Record
	if c.Dummy {
		rec, err = svc.GetDummy(ctx, &id)
	} else {
		rec, err = svc.Get(ctx, id, requestOptions()...)
	}
	if err != nil {
		return err
	}
	return printRecords(g.stdout(), g.JSON, []models.Record{rec})
}

type ListCmd struct {
	Names []string `arg:"" name:"resource" help:"Resource names, fetched concurrently."`
	Dummy bool     `help:"Return placeholders instead of calling the API."`
}

func (c *ListCmd) Run(g *Globals) error {
	ctx, client, done, err := g.client()
	if err != nil {
		return err
	}
	defer done()

	reg, err := g.registry()
	if err != nil {
		return err
	}
	services := make([]service.Writable[models.Record], len(c.Names))
	for i, name := range c.Names {
		if services[i], err = reg.Writer(name, client.Transport, client.ServiceOptions()...); err != nil {
			return err
		}
	}

	results := make([][]models.Record, len(c.Names))
	opts := requestOptions()
	eg, egCtx := errgroup.WithContext(ctx)
	for i, svc := range services {
		eg.Go(func() error {
			var err error
			if c.Dummy {
				results[i], err = svc.GetDummies(egCtx)
			} else {
				results[i], err = svc.GetAll(egCtx, opts...)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", c.Names[i], err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, name := range c.Names {
		if len(c.Names) > 1 && !g.JSON {
			fmt.Fprintln(g.stdout(), title(name))
		}
		if err := printRecords(g.stdout(), g.JSON, results[i]); err != nil {
			return err
		}
	}
	return nil
}

type ChoicesCmd struct {
	Resource string `arg:"" help:"Resource name."`
	Dummy    bool   `help:"Return placeholders instead of calling the API."`
}

func (c *ChoicesCmd) Run(g *Globals) error {
	ctx, client, done, err := g.client()
	if err != nil {
		return err
	}
	defer done()
	reg, err := g.registry()
	if err != nil {
		return err
	}
	choices, err := reg.Choices(c.Resource, client.Transport, client.ServiceOptions()...)
	if err != nil {
		return err
	}
	var got []models.Choice
	if c.Dummy {
		got, err = choices.GetDummyChoices(ctx)
	} else {
		got, err = choices.GetChoices(ctx, requestOptions()...)
	}
	if err != nil {
		return err
	}
	return printChoices(g.stdout(), g.JSON, got)
}

type PageCmd struct {
	Resource string            `arg:"" help:"Resource name."`
	Number   int               `help:"Page number, from 1." default:"1" name:"page"`
	Size     int               `help:"Page size." default:"20"`
	Query    map[string]string `help:"Extra query parameters, e.g. --query ordering=name."`
	Dummy    bool              `help:"Return a placeholder page instead of calling the API."`
}

func (c *PageCmd) Run(g *Globals) error {
	ctx, client, done, err := g.client()
	if err != nil {
		return err
	}
	defer done()
	reg, err := g.registry()
	if err != nil {
		return err
	}
	svc, err := reg.Pager(c.Resource, client.Transport, client.ServiceOptions()...)
	if err != nil {
		return err
	}
	var page models.Page[models.Record]
	if c.Dummy {
		page, err = svc.GetDummyPage(ctx, c.Number, c.Size)
	} else {
		opts := append(requestOptions(), transport.WithQuery(c.Query))
		page, err = svc.GetPage(ctx, c.Number, c.Size, opts...)
	}
	if err != nil {
		return err
	}
	if g.JSON {
		return printJSON(g.stdout(), page)
	}
	if err := printRecords(g.stdout(), false, page.Results); err != nil {
		return err
	}
	fmt.Fprintf(g.stdout(), "page %d, %d of %d\n", c.Number, len(page.Results), page.Count)
	return nil
}

type DeleteCmd struct {
	Resource string `arg:"" help:"Resource name."`
	ID       string `arg:"" help:"Identifier."`
}

func (c *DeleteCmd) Run(g *Globals) error {
	ctx, client, done, err := g.client()
	if err != nil {
		return err
	}
	defer done()
	reg, res, err := lookup(g, c.Resource)
	if err != nil {
		return err
	}
	svc, err := reg.Writer(c.Resource, client.Transport, client.ServiceOptions()...)
	if err != nil {
		return err
	}
	id, err := models.ParseIdentifier(res.Descriptor.Kind, c.ID)
	if err != nil {
		return err
	}
	return svc.Delete(ctx, id, requestOptions()...)
}

type UploadCmd struct {
	Resource string            `arg:"" help:"Resource name."`
	Field    map[string]string `help:"Form field, e.g. --field model=Civic."`
	File     map[string]string `help:"File part, e.g. --file photo=./car.jpg."`
}

func (c *UploadCmd) Run(g *Globals) error {
	ctx, client, done, err := g.client()
	if err != nil {
		return err
	}
	defer done()
	reg, err := g.registry()
	if err != nil {
		return err
	}
	svc, err := reg.Writer(c.Resource, client.Transport, client.ServiceOptions()...)
	if err != nil {
		return err
	}

	files := make([]transport.File, 0, len(c.File))
	for field, path := range c.File {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		files = append(files, transport.File{Field: field, Name: filepath.Base(path), Content: f})
	}
	rec, err := svc.PostForm(ctx, c.Field, files, requestOptions()...)
	if err != nil {
		return err
	}
	return printRecords(g.stdout(), g.JSON, []models.Record{rec})
}

type MockCmd struct {
	Resource string `arg:"" help:"Resource name."`
	Count    int    `help:"Number of entities." default:"3"`
	Seed     uint64 `help:"Seed for reproducible output, random when zero."`
}

func (c *MockCmd) Run(g *Globals) error {
	reg, err := g.registry()
	if err != nil {
		return err
	}
	shape, ok := reg.Shape(c.Resource)
	if !ok {
		return fmt.Errorf("%s has no entity shape", c.Resource)
	}
	var opts []mock.Option
	if c.Seed != 0 {
		opts = append(opts, mock.WithSeed(c.Seed))
	}
	records, err := mock.Value[[]models.Record](mock.New(opts...), schema.Array{Elem: shape, MinItems: c.Count, MaxItems: c.Count})
	if err != nil {
		return err
	}
	return printRecords(g.stdout(), g.JSON, records)
}
