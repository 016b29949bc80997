package ecommerce

// ---------------------------------------------------------------------------
// Shopify REST wire types
// ---------------------------------------------------------------------------

type shopifyProduct struct {
	ID          int64            `json:"id,omitempty"`
	Handle      string           `json:"handle,omitempty"`
	Title       string           `json:"title,omitempty"`
	BodyHTML    string           `json:"body_html"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	Status      string           `json:"status,omitempty"`
	Tags        string           `json:"tags"`
	Options     []shopifyOption  `json:"options,omitempty"`
	Variants    []shopifyVariant `json:"variants,omitempty"`
	Images      []shopifyImage   `json:"images,omitempty"`
}

type shopifyOption struct {
	ID       int64    `json:"id,omitempty"`
	Name     string   `json:"name"`
	Position int      `json:"position,omitempty"`
	Values   []string `json:"values,omitempty"`
}

type shopifyVariant struct {
	ID                  int64   `json:"id,omitempty"`
	InventoryItemID     int64   `json:"inventory_item_id,omitempty"`
	SKU                 string  `json:"sku"`
	Barcode             string  `json:"barcode"`
	Price               string  `json:"price"`
	CompareAtPrice      *string `json:"compare_at_price"`
	Option1             string  `json:"option1,omitempty"`
	Option2             string  `json:"option2,omitempty"`
	Option3             string  `json:"option3,omitempty"`
	InventoryManagement *string `json:"inventory_management"`
	InventoryQuantity   int     `json:"inventory_quantity,omitempty"`
	Weight              float64 `json:"weight"`
	WeightUnit          string  `json:"weight_unit,omitempty"`
	RequiresShipping    bool    `json:"requires_shipping"`
	Taxable             bool    `json:"taxable"`
}

type shopifyImage struct {
	ID         int64   `json:"id,omitempty"`
	Src        string  `json:"src,omitempty"`
	Alt        string  `json:"alt,omitempty"`
	Position   int     `json:"position,omitempty"`
	VariantIDs []int64 `json:"variant_ids"`
}

type shopifyMetafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

type shopifyInventoryLevel struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       *int  `json:"available"`
}

type productEnvelope struct {
	Product shopifyProduct `json:"product"`
}

type productsEnvelope struct {
	Products []shopifyProduct `json:"products"`
}

type imageEnvelope struct {
	Image shopifyImage `json:"image"`
}

type imagesEnvelope struct {
	Images []shopifyImage `json:"images"`
}

type metafieldEnvelope struct {
	Metafield shopifyMetafield `json:"metafield"`
}

type inventoryLevelsEnvelope struct {
	InventoryLevels []shopifyInventoryLevel `json:"inventory_levels"`
}

type inventorySetRequest struct {
	LocationID      int64 `json:"location_id"`
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       int   `json:"available"`
}

// ---------------------------------------------------------------------------
// Shopify GraphQL wire types
// ---------------------------------------------------------------------------

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type deliveryProfileUpdateResponse struct {
	Data struct {
		DeliveryProfileUpdate struct {
			Profile *struct {
				ID string `json:"id"`
			} `json:"profile"`
			UserErrors []graphQLUserError `json:"userErrors"`
		} `json:"deliveryProfileUpdate"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}
