package model

import "time"

// Account is the per-tenant configuration record the pipeline reads and
// conditionally updates. RootFolderID is set once on the first-ever backup
// and reused afterwards; LastSyncedAt is overwritten at the end of every
// completed run.
type Account struct {
	ID           string     `db:"id"`
	CompanyName  string     `db:"company_name"`
	TaxRegion    string     `db:"tax_region"`
	RootFolderID *string    `db:"root_folder_id"`
	LastSyncedAt *time.Time `db:"last_synced_at"`
}

// StorageConnection is the account's link to the external folder store.
// A run may only start when a verified connection exists.
type StorageConnection struct {
	AccountID    string    `db:"account_id"`
	Provider     string    `db:"provider"`
	RefreshToken string    `db:"refresh_token"`
	Verified     bool      `db:"verified"`
	ConnectedAt  time.Time `db:"connected_at"`
}

// BusinessProfile is the snapshot of the account's own details embedded in
// rendered documents.
type BusinessProfile struct {
	CompanyName string `db:"company_name"`
	Email       string `db:"email"`
	Phone       string `db:"phone"`
	Address     string `db:"address"`
	TaxRegion   string `db:"tax_region"`
}

// TaxDefaults are the region defaults resolved from the account's configured
// tax region and applied when a document line has no explicit rate.
type TaxDefaults struct {
	Label string
	Rate  float64
}

var taxRegions = map[string]TaxDefaults{
	"au": {Label: "GST", Rate: 10},
	"nz": {Label: "GST", Rate: 15},
	"uk": {Label: "VAT", Rate: 20},
	"eu": {Label: "VAT", Rate: 21},
	"ca": {Label: "GST/HST", Rate: 13},
	"us": {Label: "Sales Tax", Rate: 0},
}

// ResolveTaxDefaults returns the defaults for a region, falling back to a
// zero-rate "Tax" entry for unknown regions.
func ResolveTaxDefaults(region string) TaxDefaults {
	if d, ok := taxRegions[region]; ok {
		return d
	}
	return TaxDefaults{Label: "Tax", Rate: 0}
}
