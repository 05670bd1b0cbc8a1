package quality

import (
	"fmt"
	"strings"
)

// Mode is the analysis category the user selected.
type Mode string

const (
	SalesAnalysis       Mode = "Sales Analysis"
	CategoricalAnalysis Mode = "Categorical Analysis"
	ProductAnalysis     Mode = "Product Analysis"
	InventoryAnalysis   Mode = "Inventory Analysis"
	Other               Mode = "Other"
)

// ModeSpec describes the columns and sample dataset for one mode.
type ModeSpec struct {
	Mode            Mode
	RequiredColumns []string
	SampleFile      string // empty when the mode has no sample
}

// modeSpecs lists every mode's full requirement set. The sets are
// cumulative (Categorical ⊇ Sales; Product, Inventory ⊇ Categorical) but
// each one is spelled out so it can be checked on its own.
var modeSpecs = []ModeSpec{
	{
		Mode:            SalesAnalysis,
		RequiredColumns: []string{"Transaction ID", "Date and Time", "Value", "Product Code"},
		SampleFile:      "sample_analysis.csv",
	},
	{
		Mode: CategoricalAnalysis,
		RequiredColumns: []string{
			"Transaction ID", "Date and Time", "Value", "Product Code",
			"Product Category", "Product Method", "Customer Segment",
		},
		SampleFile: "categorical_analysis.csv",
	},
	{
		Mode: ProductAnalysis,
		RequiredColumns: []string{
			"Transaction ID", "Date and Time", "Value", "Product Code",
			"Product Category", "Product Method", "Customer Segment",
			"Product Name", "Unit Price", "Units Sold",
		},
		SampleFile: "product_analysis.csv",
	},
	{
		Mode: InventoryAnalysis,
		RequiredColumns: []string{
			"Transaction ID", "Date and Time", "Value", "Product Code",
			"Product Category", "Product Method", "Customer Segment",
			"Stock Level", "Reorder Point", "Supplier",
		},
		SampleFile: "inventory_analysis.csv",
	},
	{
		Mode: Other,
	},
}

// Modes returns every mode in display order.
func Modes() []Mode {
	out := make([]Mode, len(modeSpecs))
	for i, s := range modeSpecs {
		out[i] = s.Mode
	}
	return out
}

// Spec returns the specification for a mode. Unknown modes get Other's.
func Spec(m Mode) ModeSpec {
	for _, s := range modeSpecs {
		if s.Mode == m {
			return ModeSpec{
				Mode:            s.Mode,
				RequiredColumns: append([]string(nil), s.RequiredColumns...),
				SampleFile:      s.SampleFile,
			}
		}
	}
	return ModeSpec{Mode: Other}
}

// RequiredColumns returns the ordered required column set for a mode.
func RequiredColumns(m Mode) []string {
	return Spec(m).RequiredColumns
}

// ParseMode matches a mode by name, ignoring case and surrounding space.
// Short forms such as "sales" or "inventory" are accepted.
func ParseMode(s string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, spec := range modeSpecs {
		name := strings.ToLower(string(spec.Mode))
		if key == name || key+" analysis" == name {
			return spec.Mode, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Analyzable reports whether uploads are accepted for the mode.
func (m Mode) Analyzable() bool {
	return m != Other && Spec(m).Mode == m
}
