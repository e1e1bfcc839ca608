// Package dealerdesk is a client for the dealership back office REST API.
//
// # Services
//
// Resources are served by generic services from [github.com/dealerdesk/dealerdesk.go/pkg/service].
// Each service validates what the API returns against a schema from
// [github.com/dealerdesk/dealerdesk.go/pkg/schema]: single entities strictly, lists tolerantly, so a
// malformed row is dropped (and logged and counted) instead of failing the whole listing.
//
//	vehicles, err := dealerdesk.NewService[Vehicle](client, "vehicles", models.KindUUID, vehicleShape)
//	page, err := vehicles.GetPage(ctx, 1, 20)
//
// # Sessions
//
// [Client.Login] stores the token pair through the configured session store. When the API answers
// 403 the access token is refreshed once and the request replayed; concurrent callers share the
// refresh. A failed refresh or a 401 ends the session.
//
// # Dummies
//
// Every read operation has a Dummy variant that returns schema-conforming placeholder data after a
// short delay, for building screens before the backend exists.
package dealerdesk
