package dynamo

// DynamoDB attribute names used in key conditions and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID     = "user_id"
	fieldUniqueKey  = "unique_key"
	fieldPhone      = "phone"
	fieldEmail      = "email"
	fieldEnable     = "enable"
	fieldUpdatedAt  = "updated_at"
	fieldCode       = "code"
	fieldIntent     = "intent"
	fieldAttempts   = "attempts"
	fieldResendAt   = "resend_at"
	fieldExpiresAt  = "expires_at"
	fieldStoreID    = "store_id"
	fieldVendorID   = "vendor_id"
	fieldMedicineID = "medicine_id"
	fieldReviewID   = "review_id"
	fieldStock      = "stock"
	fieldPrice      = "price"
)

// GSI names.
const (
	indexVendorID   = "vendor_id-index"
	indexStoreID    = "store_id-index"
	indexMedicineID = "medicine_id-index"
)
