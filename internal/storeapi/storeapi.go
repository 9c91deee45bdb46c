// Package storeapi serves the storefront: authentication, the public
// catalog and the routes of the signed-in customer.
package storeapi

// Init registers the storefront routes on the current web server.
func Init() {
	registerAuthRoutes()
	registerCatalogRoutes()
	registerReviewRoutes()
	registerNewsletterRoutes()
	registerCartRoutes()
	registerWishlistRoutes()
	registerOrderRoutes()
	registerNotificationRoutes()
	registerRealtimeRoutes()
}
