// Command dealerdesk talks to the dealership back office API from the terminal.
package main

import (
	"github.com/alecthomas/kong"
)

type CLI struct {
	Globals

	Login   LoginCmd   `cmd:"" help:"Sign in and store the session."`
	Logout  LogoutCmd  `cmd:"" help:"Forget the stored session."`
	Whoami  WhoamiCmd  `cmd:"" help:"Show the signed in user and permissions."`
	Get     GetCmd     `cmd:"" help:"Fetch one entity."`
	List    ListCmd    `cmd:"" help:"List every entity of one or more resources."`
	Choices ChoicesCmd `cmd:"" help:"List the choices of a resource."`
	Page    PageCmd    `cmd:"" help:"Fetch one page of a resource."`
	Delete  DeleteCmd  `cmd:"" help:"Delete one entity."`
	Upload  UploadCmd  `cmd:"" help:"Create an entity from form fields and files."`
	Mock    MockCmd    `cmd:"" help:"Print placeholder entities of a resource."`
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("dealerdesk"),
		kong.Description("Client for the dealership back office API."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
