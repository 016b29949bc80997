package importapp

import "fmt"

// Spreadsheet column names. Matching is case-sensitive.
const (
	ColProductURL           = "Product URL"
	ColTitle                = "Title"
	ColDescription          = "Description"
	ColVendor               = "Vendor"
	ColProductType          = "Product Type"
	ColStatus               = "Status"
	ColTrackQuantity        = "Track Quantity"
	ColSKU                  = "SKU"
	ColBarcode              = "Barcode"
	ColPrice                = "Price"
	ColCompareAtPrice       = "Compare At Price"
	ColInventoryQty         = "Inventory Qty"
	ColWeight               = "Weight"
	ColWeightUnit           = "Weight Unit"
	ColCategories           = "Categories"
	ColFeaturedImage        = "Featured Image"
	ColVariantGroupedImages = "Variant Grouped Images"
	ColShippingProfileID    = "Shipping Profile ID"
)

func colOptionName(n int) string   { return fmt.Sprintf("Option%d Name", n) }
func colOptionValue(n int) string  { return fmt.Sprintf("Option%d Value", n) }
func colCustomLabel(n int) string  { return fmt.Sprintf("Custom Label %d", n) }
func colCustomValue(n int) string  { return fmt.Sprintf("Custom Value %d", n) }
func colVariantImage(n int) string { return fmt.Sprintf("Variant Image %d", n) }
