package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers served under the API prefix
type Handlers struct {
	Auth           *handler.AuthHandler
	Product        *handler.ProductHandler
	Media          *handler.ProductMediaHandler
	Category       *handler.CategoryHandler
	RecentlyViewed *handler.RecentlyViewedHandler
	Cart           *handler.CartHandler
	Order          *handler.OrderHandler
	AdminOrder     *handler.AdminOrderHandler
	User           *handler.UserHandler
	System         *handler.SystemHandler
}

// Guards are the access middleware of the route groups.
// AuthRateLimit is optional.
type Guards struct {
	RequireAuth   gin.HandlerFunc
	OptionalAuth  gin.HandlerFunc
	RequireAdmin  gin.HandlerFunc
	AuthRateLimit gin.HandlerFunc
}

// StorefrontGroups builds the route groups of the storefront API
func StorefrontGroups(h Handlers, g Guards) []*DomainGroup {
	return []*DomainGroup{
		authRoutes(h, g),
		catalogRoutes(h, g),
		recentlyViewedRoutes(h, g),
		cartRoutes(h, g),
		paymentOptionRoutes(h),
		orderRoutes(h, g),
		adminRoutes(h, g),
		systemRoutes(h),
	}
}

func authRoutes(h Handlers, g Guards) *DomainGroup {
	routes := NewDomainGroup("auth", "/auth")
	if g.AuthRateLimit != nil {
		routes.Use(g.AuthRateLimit)
	}
	routes.POST("/register", h.Auth.Register)
	routes.POST("/login", h.Auth.Login)
	routes.POST("/refresh", h.Auth.RefreshToken)
	routes.POST("/logout", g.RequireAuth, h.Auth.Logout)
	routes.GET("/me", g.RequireAuth, h.Auth.GetCurrentUser)
	routes.PUT("/me", g.RequireAuth, h.Auth.UpdateCurrentUser)
	return routes
}

func catalogRoutes(h Handlers, g Guards) *DomainGroup {
	routes := NewDomainGroup("catalog", "/catalog")

	products := routes.Group("products", "/products").Use(g.OptionalAuth)
	products.GET("", h.Product.List)
	products.GET("/:id", h.Product.GetByID)
	products.GET("/slug/:slug", h.Product.GetBySlug)

	categories := routes.Group("categories", "/categories")
	categories.GET("", h.Category.Tree)
	categories.GET("/:id", h.Category.GetByID)
	categories.GET("/slug/:slug", h.Category.GetBySlug)
	return routes
}

func recentlyViewedRoutes(h Handlers, g Guards) *DomainGroup {
	routes := NewDomainGroup("recently-viewed", "/recently-viewed").Use(g.OptionalAuth)
	routes.GET("", h.RecentlyViewed.List)
	routes.DELETE("", h.RecentlyViewed.Clear)
	routes.DELETE("/:productId", h.RecentlyViewed.Remove)
	return routes
}

func cartRoutes(h Handlers, g Guards) *DomainGroup {
	routes := NewDomainGroup("cart", "/cart").Use(g.OptionalAuth)
	routes.GET("", h.Cart.Get)
	routes.DELETE("", h.Cart.Clear)
	routes.POST("/items", h.Cart.AddItem)
	routes.PUT("/items/:itemId", h.Cart.UpdateItem)
	routes.DELETE("/items/:itemId", h.Cart.RemoveItem)
	routes.POST("/items/:itemId/decrement", h.Cart.DecrementItem)
	return routes
}

// paymentOptionRoutes is public and kept apart from the guarded order group
func paymentOptionRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("payment-options", "/orders").
		GET("/payment-options", h.Order.PaymentOptions)
}

func orderRoutes(h Handlers, g Guards) *DomainGroup {
	routes := NewDomainGroup("orders", "/orders").Use(g.RequireAuth)
	routes.GET("", h.Order.List)
	routes.POST("", h.Order.Checkout)
	routes.GET("/:id", h.Order.Get)
	routes.POST("/:id/cancel", h.Order.Cancel)
	routes.POST("/:id/items/:itemId/return", h.Order.RequestReturn)
	routes.POST("/:id/items/:itemId/replacement", h.Order.RequestReplacement)
	return routes
}

func adminRoutes(h Handlers, g Guards) *DomainGroup {
	admin := NewDomainGroup("admin", "/admin").Use(g.RequireAuth, g.RequireAdmin)

	products := admin.Group("admin-products", "/products")
	products.GET("", h.Product.AdminList)
	products.POST("", h.Product.Create)
	products.GET("/:id", h.Product.AdminGet)
	products.PUT("/:id", h.Product.Update)
	products.DELETE("/:id", h.Product.Delete)
	products.POST("/:id/approve", h.Product.Approve)
	products.POST("/:id/unapprove", h.Product.Unapprove)
	products.POST("/:id/variations", h.Product.AddVariation)
	products.PUT("/:id/variations/:variationId", h.Product.UpdateVariation)
	products.DELETE("/:id/variations/:variationId", h.Product.RemoveVariation)
	products.GET("/:id/media", h.Media.List)
	products.POST("/:id/media", h.Media.InitiateUpload)
	products.PUT("/:id/media/order", h.Media.Reorder)
	products.POST("/:id/media/:mediaId/confirm", h.Media.ConfirmUpload)
	products.PUT("/:id/media/:mediaId", h.Media.Update)
	products.DELETE("/:id/media/:mediaId", h.Media.Delete)

	categories := admin.Group("admin-categories", "/categories")
	categories.GET("", h.Category.AdminTree)
	categories.POST("", h.Category.Create)
	categories.GET("/:id", h.Category.AdminGet)
	categories.PUT("/:id", h.Category.Update)
	categories.DELETE("/:id", h.Category.Delete)

	orders := admin.Group("admin-orders", "/orders")
	orders.GET("", h.AdminOrder.List)
	orders.GET("/:id", h.AdminOrder.Get)
	orders.PUT("/:id/status", h.AdminOrder.UpdateStatus)
	orders.POST("/:id/requests/:requestId/approve", h.AdminOrder.ApproveRequest)
	orders.POST("/:id/requests/:requestId/reject", h.AdminOrder.RejectRequest)
	orders.POST("/:id/requests/:requestId/complete", h.AdminOrder.CompleteRequest)

	users := admin.Group("admin-users", "/users")
	users.GET("", h.User.List)
	users.GET("/:id", h.User.Get)
	users.PUT("/:id", h.User.Update)
	users.DELETE("/:id", h.User.Delete)

	carts := admin.Group("admin-carts", "/carts")
	carts.GET("", h.Cart.AdminList)
	carts.GET("/:id", h.Cart.AdminGet)
	carts.DELETE("/:id", h.Cart.AdminDelete)

	views := admin.Group("admin-recently-viewed", "/recently-viewed")
	views.GET("", h.RecentlyViewed.AdminList)
	views.DELETE("/:id", h.RecentlyViewed.AdminDelete)
	return admin
}

func systemRoutes(h Handlers) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo)
}
