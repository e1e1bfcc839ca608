package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/dealerdesk/dealerdesk.go/pkg/constants"
	"github.com/dealerdesk/dealerdesk.go/pkg/mock"
	"github.com/dealerdesk/dealerdesk.go/pkg/models"
	"github.com/dealerdesk/dealerdesk.go/pkg/schema"
	"github.com/dealerdesk/dealerdesk.go/pkg/transport"
)

type Vehicle struct {
	models.UUIDEntity
	Brand string `json:"brand"`
	Year  int    `json:"year"`
}

type Company struct {
	models.NumericEntity
	Name string `json:"name"`
}

var (
	vehicleShape = schema.UUIDEntity(
		schema.Required("brand", schema.String{MinLen: 1}),
		schema.Required("year", schema.Number{Integer: true, Min: schema.Float(1900)}),
	)
	companyShape = schema.NumericEntity(
		schema.Required("name", schema.String{MinLen: 1}),
	)

	vehicleID = uuid.Must(uuid.FromString("6f1c3f3e-2b7a-4d4c-9a57-0f3b2c1d4e5f"))
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type ServiceTestSuite struct {
	suite.Suite

	srv      *httptest.Server
	mu       sync.Mutex
	requests []recorded
	replies  map[string]string

	vehicles  *Paginated[Vehicle]
	companies *Paginated[Company]
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.requests = nil
	s.replies = map[string]string{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
		reply, ok := s.replies[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"not found"}`))
			return
		}
		if reply == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))

	t := transport.New(transport.Params{BaseURL: s.srv.URL, APIPattern: "api"})
	opts := []Option{WithMock(mock.New(mock.WithSeed(7))), WithDummyDelay(0)}

	var err error
	s.vehicles, err = NewPaginated[Vehicle](t, Descriptor{Path: "vehicles", Kind: models.KindUUID, Schema: vehicleShape}, opts...)
	s.Require().NoError(err)
	s.companies, err = NewPaginated[Company](t, Descriptor{Path: "companies", Kind: models.KindNumeric, Schema: companyShape}, opts...)
	s.Require().NoError(err)
}

func (s *ServiceTestSuite) TearDownTest() {
	s.srv.Close()
}

func (s *ServiceTestSuite) reply(route, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[route] = body
}

func (s *ServiceTestSuite) last() recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Require().NotEmpty(s.requests)
	return s.requests[len(s.requests)-1]
}

func (s *ServiceTestSuite) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *ServiceTestSuite) TestDescriptorValidation() {
	t := transport.New(transport.Params{BaseURL: "http://localhost", APIPattern: "api"})

	_, err := NewReader[Vehicle](t, Descriptor{Kind: models.KindUUID, Schema: vehicleShape})
	s.Require().ErrorIs(err, constants.ErrConfiguration)

	_, err = NewReader[Vehicle](t, Descriptor{Path: "vehicles", Schema: vehicleShape})
	s.Require().ErrorIs(err, constants.ErrConfiguration)

	_, err = NewChoices(t, "/")
	s.Require().ErrorIs(err, constants.ErrConfiguration)
}

func (s *ServiceTestSuite) TestGet() {
	s.reply("GET /api/vehicles/"+vehicleID.String()+"/",
		`{"uuid":"`+vehicleID.String()+`","brand":"Volvo","year":2021,"created_at":"2024-03-01T10:00:00Z","vin":"ignored"}`)

	v, err := s.vehicles.Get(context.Background(), models.UUIDIdentifier(vehicleID))
	s.Require().NoError(err)
	s.Equal(vehicleID, v.UUID)
	s.Equal("Volvo", v.Brand)
	s.Equal(2021, v.Year)
	s.Require().NotNil(v.CreatedAt)
	s.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), v.CreatedAt.UTC())
}

func (s *ServiceTestSuite) TestGetRejectsInvalidEntity() {
	s.reply("GET /api/vehicles/"+vehicleID.String()+"/", `{"uuid":"`+vehicleID.String()+`","brand":"","year":2021}`)

	_, err := s.vehicles.Get(context.Background(), models.UUIDIdentifier(vehicleID))
	s.Require().ErrorIs(err, constants.ErrValidation)
	ve, ok := schema.AsValidationError(err)
	s.Require().True(ok)
	s.Equal("brand", ve.Path)
}

func (s *ServiceTestSuite) TestGetRejectsEmptyBody() {
	s.reply("GET /api/vehicles/"+vehicleID.String()+"/", "")

	v, err := s.vehicles.Get(context.Background(), models.UUIDIdentifier(vehicleID))
	s.Require().ErrorIs(err, constants.ErrValidation)
	s.Zero(v)
	s.Contains(err.Error(), "expected object, got null")
}

func (s *ServiceTestSuite) TestGetWithWrongIdentifierKind() {
	_, err := s.vehicles.Get(context.Background(), models.NumericIdentifier(3))
	s.Require().ErrorIs(err, constants.ErrIdentifierKind)
	s.Require().ErrorIs(err, constants.ErrValidation)
	s.Equal(0, s.count())
}

func (s *ServiceTestSuite) TestNotFoundIsRequestError() {
	_, err := s.companies.Get(context.Background(), models.NumericIdentifier(404))
	var re *transport.RequestError
	s.Require().ErrorAs(err, &re)
	s.True(re.NotFound())
	s.Contains(re.Body, "not found")
}

func (s *ServiceTestSuite) TestGetAllDropsInvalidElements() {
	s.reply("GET /api/companies/all/", `[
		{"id":1,"name":"Acme"},
		{"id":-2,"name":"Broken"},
		{"id":3,"name":"Globex"},
		{"id":4}
	]`)

	companies, err := s.companies.GetAll(context.Background())
	s.Require().NoError(err)
	s.Require().Len(companies, 2)
	s.Equal("Acme", companies[0].Name)
	s.Equal(int64(3), companies[1].ID)
}

func (s *ServiceTestSuite) TestGetChoicesKeepsValidInOrder() {
	s.reply("GET /api/companies/choices/", `[
		{"label":"Acme","value":1},
		{"label":"Broken"},
		{"label":"Globex","value":"globex"},
		{"label":"Initech","value":3.5}
	]`)

	choices, err := s.companies.GetChoices(context.Background())
	s.Require().NoError(err)
	s.Require().Len(choices, 3)
	s.Equal("Acme", choices[0].Label)
	s.True(choices[0].Value.IsNumber())
	s.Equal("globex", choices[1].Value.String())
	s.Equal("Initech", choices[2].Label)
}

func (s *ServiceTestSuite) TestStandaloneChoices() {
	t := transport.New(transport.Params{BaseURL: s.srv.URL, APIPattern: "api"})
	internal, err := NewChoices(t, "companies/internal/")
	s.Require().NoError(err)
	s.reply("GET /api/companies/internal/choices/", `[{"label":"HQ","value":"hq"}]`)

	choices, err := internal.GetChoices(context.Background())
	s.Require().NoError(err)
	s.Equal([]models.Choice{{Label: "HQ", Value: models.StringChoice("hq")}}, choices)
}

func (s *ServiceTestSuite) TestPostLeavesOutZeroIdentifier() {
	s.reply("POST /api/vehicles/", `{"uuid":"`+vehicleID.String()+`","brand":"Kia","year":2020}`)

	v, err := s.vehicles.Post(context.Background(), Vehicle{Brand: "Kia", Year: 2020})
	s.Require().NoError(err)
	s.Equal(vehicleID, v.UUID)

	sent := s.last()
	s.Equal("/api/vehicles/", sent.Path)
	s.JSONEq(`{"brand":"Kia","year":2020}`, sent.Body)
}

func (s *ServiceTestSuite) TestPutStripsIdentifier() {
	s.reply("PUT /api/companies/7/", `{"id":7,"name":"Acme"}`)

	c, err := s.companies.Put(context.Background(), Company{NumericEntity: models.NumericEntity{ID: 7}, Name: "Acme"})
	s.Require().NoError(err)
	s.Equal(int64(7), c.ID)

	sent := s.last()
	s.Equal(http.MethodPut, sent.Method)
	s.Equal("/api/companies/7/", sent.Path)
	s.JSONEq(`{"name":"Acme"}`, sent.Body)
}

func (s *ServiceTestSuite) TestPutAnyStripsIdentifier() {
	s.reply("PUT /api/companies/7/", `{"id":7,"name":"Acme"}`)

	_, err := s.companies.PutAny(context.Background(), map[string]any{"id": 7, "name": "Acme"})
	s.Require().NoError(err)
	s.JSONEq(`{"name":"Acme"}`, s.last().Body)
}

func (s *ServiceTestSuite) TestPatchPartial() {
	s.reply("PATCH /api/vehicles/"+vehicleID.String()+"/", `{"uuid":"`+vehicleID.String()+`","brand":"Kia","year":2024}`)

	v, err := s.vehicles.PatchPartial(context.Background(), map[string]any{"uuid": vehicleID.String(), "year": 2024})
	s.Require().NoError(err)
	s.Equal(2024, v.Year)

	sent := s.last()
	s.Equal(http.MethodPatch, sent.Method)
	s.JSONEq(`{"year":2024}`, sent.Body)
}

func (s *ServiceTestSuite) TestMutationsNeedIdentifier() {
	_, err := s.companies.PatchPartial(context.Background(), map[string]any{"name": "Acme"})
	s.Require().ErrorIs(err, constants.ErrValidation)

	_, err = s.companies.PutAny(context.Background(), map[string]any{"uuid": vehicleID.String(), "id": vehicleID.String()})
	s.Require().ErrorIs(err, constants.ErrIdentifierKind)
	s.Equal(0, s.count())
}

func (s *ServiceTestSuite) TestDeleteAcceptsEntitiesAndIdentifiers() {
	path := "/api/vehicles/" + vehicleID.String() + "/"
	s.reply("DELETE "+path, "")
	ctx := context.Background()

	inputs := []any{
		Vehicle{UUIDEntity: models.UUIDEntity{UUID: vehicleID}, Brand: "Kia", Year: 2020},
		map[string]any{"uuid": vehicleID.String(), "brand": "Kia", "year": 2020},
		models.UUIDIdentifier(vehicleID),
		vehicleID,
		vehicleID.String(),
	}
	for _, in := range inputs {
		s.Require().NoError(s.vehicles.Delete(ctx, in), "%T", in)
		s.Equal(http.MethodDelete, s.last().Method)
		s.Equal(path, s.last().Path)
	}

	s.reply("DELETE /api/companies/12/", "")
	s.Require().NoError(s.companies.Delete(ctx, 12))
	s.Require().NoError(s.companies.Delete(ctx, "12"))
	s.Equal("/api/companies/12/", s.last().Path)
}

func (s *ServiceTestSuite) TestDeleteChecksEntityFirst() {
	err := s.vehicles.Delete(context.Background(), Vehicle{UUIDEntity: models.UUIDEntity{UUID: vehicleID}, Year: 2020})
	s.Require().ErrorIs(err, constants.ErrValidation)

	err = s.vehicles.Delete(context.Background(), 5)
	s.Require().ErrorIs(err, constants.ErrIdentifierKind)

	err = s.companies.Delete(context.Background(), -1)
	s.Require().ErrorIs(err, constants.ErrValidation)
	s.Equal(0, s.count())
}

func (s *ServiceTestSuite) TestPostForm() {
	s.reply("POST /api/companies/", `{"id":9,"name":"Uploaded"}`)

	c, err := s.companies.PostForm(context.Background(), map[string]string{"name": "Uploaded"},
		[]transport.File{{Field: "charter", Name: "charter.pdf", Content: strings.NewReader("%PDF")}})
	s.Require().NoError(err)
	s.Equal(int64(9), c.ID)
	s.Contains(s.last().Body, "charter.pdf")
}

func (s *ServiceTestSuite) TestGetPage() {
	s.reply("GET /api/companies/", `{
		"count": 5,
		"next": "http://example.com/api/companies/?page=3&page_size=2",
		"previous": null,
		"results": [{"id":3,"name":"C"},{"id":0,"name":"bad"},{"id":4,"name":"D"}]
	}`)

	page, err := s.companies.GetPage(context.Background(), 2, 2, transport.WithQuery(map[string]string{"ordering": "name"}))
	s.Require().NoError(err)
	s.Equal(5, page.Count)
	s.True(page.HasNext())
	s.False(page.HasPrevious())
	s.Require().Len(page.Results, 2)
	s.Equal("D", page.Results[1].Name)
	s.Equal("ordering=name&page=2&page_size=2", s.last().Query)
}

func (s *ServiceTestSuite) TestGetPageKeepsCallerQuery() {
	s.reply("GET /api/companies/", `{"count":1,"next":null,"previous":null,"results":[{"id":1,"name":"A"}]}`)

	query := url.Values{"ordering": {"name"}, "page": {"9"}}
	for _, page := range []int{1, 2} {
		_, err := s.companies.GetPage(context.Background(), page, 5, transport.WithQuery(query))
		s.Require().NoError(err)
	}
	s.Equal(url.Values{"ordering": {"name"}, "page": {"9"}}, query)
	s.Equal("ordering=name&page=2&page_size=5", s.last().Query)
}

func (s *ServiceTestSuite) TestGetPageEnforcesSize() {
	s.reply("GET /api/companies/", `{"count":3,"next":null,"previous":null,"results":[{"id":1,"name":"A"},{"id":2,"name":"B"}]}`)

	_, err := s.companies.GetPage(context.Background(), 1, 1)
	s.Require().ErrorIs(err, constants.ErrValidation)
}

func (s *ServiceTestSuite) TestGetPageEnvelopeIsStrict() {
	s.reply("GET /api/companies/", `{"count":-1,"next":null,"previous":null,"results":[]}`)

	_, err := s.companies.GetPage(context.Background(), 1, 10)
	ve, ok := schema.AsValidationError(err)
	s.Require().True(ok)
	s.Equal("count", ve.Path)
}

func (s *ServiceTestSuite) TestDummies() {
	ctx := context.Background()

	id := models.UUIDIdentifier(vehicleID)
	v, err := s.vehicles.GetDummy(ctx, &id)
	s.Require().NoError(err)
	s.Equal(vehicleID, v.UUID)
	s.True(schema.Is(vehicleShape, v))

	list, err := s.companies.GetDummies(ctx)
	s.Require().NoError(err)
	for _, c := range list {
		s.True(schema.Is(companyShape, c))
	}

	page, err := s.companies.GetDummyPage(ctx, 1, 3)
	s.Require().NoError(err)
	s.LessOrEqual(len(page.Results), 3)

	choices, err := s.companies.GetDummyChoices(ctx)
	s.Require().NoError(err)
	for _, c := range choices {
		s.True(schema.Is(schema.Choice(), c))
	}

	s.Equal(0, s.count())
}

func (s *ServiceTestSuite) TestGetDummyRejectsWrongIdentifier() {
	id := models.NumericIdentifier(1)
	_, err := s.vehicles.GetDummy(context.Background(), &id)
	s.Require().ErrorIs(err, constants.ErrIdentifierKind)
}

func (s *ServiceTestSuite) TestGetDummyHonoursContext() {
	t := transport.New(transport.Params{BaseURL: s.srv.URL, APIPattern: "api"})
	slow, err := NewReader[Vehicle](t, Descriptor{Path: "vehicles", Kind: models.KindUUID, Schema: vehicleShape},
		WithDummyDelay(time.Hour))
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = slow.GetDummy(ctx, nil)
	s.Require().ErrorIs(err, context.DeadlineExceeded)
}

type vehicleTools struct {
	prefix string
}

func (t vehicleTools) Label(v Vehicle) string {
	return t.prefix + v.Brand
}

func (s *ServiceTestSuite) TestWithToolsComposition() {
	type Vehicles struct {
		*Paginated[Vehicle]
		WithTools[vehicleTools]
	}
	svc := Vehicles{Paginated: s.vehicles, WithTools: WithTools[vehicleTools]{Tools: vehicleTools{prefix: "car: "}}}

	s.Equal("car: Kia", svc.WithTools.Tools.Label(Vehicle{Brand: "Kia"}))
	s.True(svc.Paginated.Tools.Conforms(map[string]any{"uuid": vehicleID.String(), "brand": "Kia", "year": 2000}))

	var readable Readable[Vehicle] = svc
	s.NotNil(readable)
}

func TestEntityToolsSplit(t *testing.T) {
	tools := NewEntityTools[Company](Descriptor{Path: "companies", Kind: models.KindNumeric, Schema: companyShape})

	id, body, err := tools.Split(json.RawMessage(`{"id":7,"name":"Acme"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := id.Int(); got != 7 {
		t.Fatalf("id = %d", got)
	}
	if _, ok := body["id"]; ok {
		t.Fatal("id left in body")
	}
}
