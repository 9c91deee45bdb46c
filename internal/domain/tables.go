package domain

var Tables = []interface{}{
	// Auth
	&Account{},
	&Profile{},
	&UserRole{},
	// Catalog
	&Product{},
	&ProductCategory{},
	&Promotion{},
	&ShippingRate{},
	&Supplier{},
	// Customer
	&CartItem{},
	&WishlistItem{},
	&Review{},
	&Order{},
	&OrderItem{},
	&Notification{},
	&NewsletterSubscriber{},
	// System
	&SiteSetting{},
	&ShopScheduler{},
	&SysOprLog{},
}
