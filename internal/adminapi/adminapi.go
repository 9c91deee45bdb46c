// Package adminapi serves the back office under /api/v1/admin.
package adminapi

// Init registers the admin routes on the current web server.
func Init() {
	registerDashboardRoutes()
	registerProductRoutes()
	registerCategoryRoutes()
	registerUserRoutes()
	registerOrderRoutes()
	registerReviewRoutes()
	registerShippingRoutes()
	registerNewsletterRoutes()
	registerSettingsRoutes()
	registerStatisticsRoutes()
	registerPromotionRoutes()
	registerSupplierRoutes()
	registerSchedulerRoutes()
	registerLogRoutes()
	registerMetricsRoutes()
	registerDatabaseRoutes()
}
