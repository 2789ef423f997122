package handler

import (
	"net/http"

	"github.com/hanbit-dev/fleamart/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux.
//
// Login, signup, and product creation carry the anti-forgery token into the
// service layer themselves; the remaining mutations are gated by the
// RequireCSRF middleware.
func RegisterRoutes(
	mux *http.ServeMux,
	sessions *service.SessionManager,
	users *service.UserStore,
	catalog *service.CatalogStore,
	reports *service.ReportStore,
	chats *service.ChatStore,
	audit *service.AuditLog,
) {
	auth := NewAuthHandler(sessions, users)
	products := NewProductHandler(catalog)
	reporting := NewReportHandler(reports)
	chat := NewChatHandler(chats)
	admin := NewAdminHandler(catalog, reports, audit)

	mux.HandleFunc("GET /healthz", HandleHealthz)

	mux.HandleFunc("GET /api/auth/csrf", auth.HandleCSRFToken)
	mux.HandleFunc("POST /api/auth/login", auth.HandleLogin)
	mux.HandleFunc("POST /api/auth/signup", auth.HandleSignup)
	mux.HandleFunc("POST /api/auth/logout", auth.HandleLogout)
	mux.Handle("GET /api/auth/me", RequireAuth(sessions, http.HandlerFunc(auth.HandleMe)))
	mux.Handle("POST /api/session/touch", RequireAuth(sessions, http.HandlerFunc(auth.HandleTouch)))

	mux.HandleFunc("GET /api/products", products.HandleList)
	mux.HandleFunc("GET /api/products/search", products.HandleSearch)
	mux.HandleFunc("GET /api/products/{id}", products.HandleView)
	mux.HandleFunc("GET /api/images/{ref...}", products.HandleImage)
	mux.Handle("POST /api/products", RequireAuth(sessions, http.HandlerFunc(products.HandleCreate)))
	mux.Handle("POST /api/products/{id}/sold",
		RequireAuth(sessions, RequireCSRF(sessions, http.HandlerFunc(products.HandleMarkSold))))
	mux.Handle("POST /api/products/{id}/remove",
		RequireAuth(sessions, RequireCSRF(sessions, http.HandlerFunc(products.HandleRemove))))

	mux.Handle("POST /api/chats",
		RequireAuth(sessions, RequireCSRF(sessions, http.HandlerFunc(chat.HandleStart))))
	mux.Handle("GET /api/chats", RequireAuth(sessions, http.HandlerFunc(chat.HandleRooms)))
	mux.Handle("GET /api/chats/{id}/messages", RequireAuth(sessions, http.HandlerFunc(chat.HandleMessages)))
	mux.Handle("POST /api/chats/{id}/messages",
		RequireAuth(sessions, RequireCSRF(sessions, http.HandlerFunc(chat.HandleSend))))

	mux.Handle("POST /api/reports",
		RequireAuth(sessions, RequireCSRF(sessions, http.HandlerFunc(reporting.HandleSubmit))))

	mux.Handle("POST /api/admin/sellers/{id}/block",
		RequireAdmin(sessions, RequireCSRF(sessions, http.HandlerFunc(admin.HandleBlockSeller))))
	mux.Handle("POST /api/admin/sellers/{id}/unblock",
		RequireAdmin(sessions, RequireCSRF(sessions, http.HandlerFunc(admin.HandleUnblockSeller))))
	mux.Handle("GET /api/admin/reports", RequireAdmin(sessions, http.HandlerFunc(admin.HandleListReports)))
	mux.Handle("POST /api/admin/reports/{id}/resolve",
		RequireAdmin(sessions, RequireCSRF(sessions, http.HandlerFunc(admin.HandleResolveReport))))
	mux.Handle("GET /api/admin/activity", RequireAdmin(sessions, http.HandlerFunc(admin.HandleActivityLog)))
}
