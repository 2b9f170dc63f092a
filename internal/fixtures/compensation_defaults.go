package fixtures

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/compensation"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed professional_tax.yaml
var professionalTaxYAML []byte

func boolPtr(b bool) *bool { return &b }

func decPtr(d decimal.Decimal) *decimal.Decimal { return &d }

type slabFile struct {
	ProfessionalTax map[string][]slabRow `yaml:"professional_tax"`
}

type slabRow struct {
	MinIncome string `yaml:"min_income"`
	MaxIncome string `yaml:"max_income"`
	Amount    string `yaml:"amount"`
}

// ProfessionalTaxSlabs loads state slab tables from path, or the bundled table when path is empty.
func ProfessionalTaxSlabs(path string) (map[string][]compensation.ProfessionalTaxSlab, error) {
	raw := professionalTaxYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read slab file: %w", err)
		}
		raw = b
	}
	return parseSlabs(raw)
}

func parseSlabs(raw []byte) (map[string][]compensation.ProfessionalTaxSlab, error) {
	var f slabFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode slab file: %w", err)
	}

	out := make(map[string][]compensation.ProfessionalTaxSlab, len(f.ProfessionalTax))
	for state, rows := range f.ProfessionalTax {
		slabs := make([]compensation.ProfessionalTaxSlab, 0, len(rows))
		for i, row := range rows {
			slab, err := row.toSlab()
			if err != nil {
				return nil, fmt.Errorf("state %s slab %d: %w", state, i, err)
			}
			slabs = append(slabs, slab)
		}
		out[state] = slabs
	}
	return out, nil
}

func (r slabRow) toSlab() (compensation.ProfessionalTaxSlab, error) {
	minIncome, err := decimal.NewFromString(r.MinIncome)
	if err != nil {
		return compensation.ProfessionalTaxSlab{}, fmt.Errorf("min_income: %w", err)
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return compensation.ProfessionalTaxSlab{}, fmt.Errorf("amount: %w", err)
	}
	slab := compensation.ProfessionalTaxSlab{MinIncome: minIncome, Amount: amount}
	if r.MaxIncome != "" {
		maxIncome, err := decimal.NewFromString(r.MaxIncome)
		if err != nil {
			return compensation.ProfessionalTaxSlab{}, fmt.Errorf("max_income: %w", err)
		}
		slab.MaxIncome = &maxIncome
	}
	return slab, nil
}

// DefaultCompensationRules is seeded for a tenant that has not configured anything.
// Every field is set so the stored row documents what the tenant is actually paying.
func DefaultCompensationRules(tenantID string) compensation.CompensationRules {
	conveyance := compensation.DefaultConveyance
	medical := compensation.DefaultMedical
	return compensation.CompensationRules{
		TenantID:          tenantID,
		Country:           compensation.DefaultCountry,
		Currency:          compensation.DefaultCurrency,
		TaxRegime:         compensation.DefaultTaxRegime,
		PFEnabled:         boolPtr(true),
		PFEmployeeRate:    decPtr(compensation.DefaultPFEmployeeRate),
		PFEmployerRate:    decPtr(compensation.DefaultPFEmployerRate),
		PFWageCeiling:     decPtr(compensation.DefaultPFWageCeiling),
		PFCapEnabled:      boolPtr(true),
		ESIEnabled:        boolPtr(true),
		ESIEmployeeRate:   decPtr(compensation.DefaultESIEmployeeRate),
		ESIEmployerRate:   decPtr(compensation.DefaultESIEmployerRate),
		ESIWageCeiling:    decPtr(compensation.DefaultESIWageCeiling),
		PTEnabled:         boolPtr(true),
		PTFlatAmount:      decPtr(compensation.DefaultProfessionalTax),
		RoundingMethod:    "HALF_UP",
		RoundingUnit:      decPtr(decimal.NewFromInt(1)),
		BasicPercent:      decPtr(compensation.DefaultBasicPercent),
		HRAPercentOfBasic: decPtr(compensation.DefaultHRAPercentOfBasic),
		Conveyance:        &conveyance,
		Medical:           &medical,
	}
}
