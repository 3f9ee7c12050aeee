package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) JWTMiddlewareWithRole(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return app.JWTMiddleware(next, requiredRole)
	}
}

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders, makeResponseJSON)
	authMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole("user"))
	adminAuthMiddleware := standardMiddleware.Append(app.JWTMiddlewareWithRole("admin"))

	mux := pat.New()

	// Sales and contracts
	mux.Post("/sale", authMiddleware.ThenFunc(app.saleHandler.CreateSale))
	mux.Post("/contract/:id/signature", authMiddleware.ThenFunc(app.saleHandler.SignContract))

	// Invoices and credit profile
	mux.Get("/invoices/:user_id", authMiddleware.ThenFunc(app.invoiceHandler.GetHistory))
	mux.Get("/profile/:user_id", authMiddleware.ThenFunc(app.profileHandler.GetProfile))
	mux.Put("/profile/:user_id/due_day", authMiddleware.ThenFunc(app.saleHandler.ChangeDueDay))
	mux.Put("/admin/profile/:user_id/credit", adminAuthMiddleware.ThenFunc(app.profileHandler.UpdateCredit))

	// Notifications
	mux.Get("/notifications/:user_id", authMiddleware.ThenFunc(app.notificationHandler.GetUnread))
	mux.Post("/notifications/:id/read", authMiddleware.ThenFunc(app.notificationHandler.MarkRead))
	mux.Post("/notifications/device", authMiddleware.ThenFunc(app.notificationHandler.RegisterDevice))
	mux.Get("/ws", standardMiddleware.ThenFunc(app.WebSocketHandler))

	// Mercado Pago
	mux.Post("/webhook/mercadopago", standardMiddleware.ThenFunc(app.mercadoPagoHandler.Webhook))
	mux.Get("/payment/success", standardMiddleware.ThenFunc(app.mercadoPagoHandler.SuccessRedirect))
	mux.Get("/payment/failure", standardMiddleware.ThenFunc(app.mercadoPagoHandler.FailureRedirect))

	// Operations
	mux.Post("/cron/sweep", standardMiddleware.ThenFunc(app.cronHandler.Sweep))
	mux.Get("/admin/actionlog", adminAuthMiddleware.ThenFunc(app.actionLogHandler.GetRecent))

	return standardMiddleware.Then(mux)
}
