package engine

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the form, submission, action, and role endpoints.
// The caller middleware must already be installed so every handler sees a
// CallerIdentity (possibly anonymous).
func RegisterRoutes(app *fiber.App, e *Engine) {
	app.Get("/form", e.ListForms)
	app.Post("/form", e.CreateForm)
	app.Get("/form/:formID", e.GetForm)
	app.Put("/form/:formID", e.UpdateForm)
	app.Delete("/form/:formID", e.DeleteForm)

	app.Get("/form/:formID/submission", e.ListSubmissions)
	app.Post("/form/:formID/submission", e.CreateSubmission)
	app.Get("/form/:formID/submission/:submissionID", e.GetSubmission)
	app.Put("/form/:formID/submission/:submissionID", e.UpdateSubmission)
	app.Delete("/form/:formID/submission/:submissionID", e.DeleteSubmission)

	app.Get("/form/:formID/action", e.ListActions)
	app.Post("/form/:formID/action", e.CreateAction)
	app.Put("/form/:formID/action/:actionID", e.UpdateAction)
	app.Delete("/form/:formID/action/:actionID", e.DeleteAction)

	app.Get("/role", e.ListRoles)
	app.Post("/role", e.CreateRole)
	app.Put("/role/:roleID", e.UpdateRole)
}
