/*
catalog.go - Default program catalog

PURPOSE:
  Assembles the built-in calculators into a registry plus the canonical
  benefit mapping that feeds the already-has filter. Deployments that load
  programs from configuration use factory.ParseCatalog instead; this
  catalog is the code-defined baseline the server ships with.
*/
package programs

import (
	"github.com/warp/benefit-engine/engine"
	"github.com/warp/benefit-engine/fpl"
)

// DefaultMapping maps program keys to the canonical already-has flags.
// Several state variants share one flag on purpose.
func DefaultMapping() engine.BenefitMapping {
	return engine.BenefitMapping{
		"snap":        "snap",
		"co_medicaid": "medicaid",
		"il_medicaid": "medicaid",
		"tanf":        "tanf",
		"csfp":        "csfp",
		"msp":         "medicare_savings",
		"nfp":         "nfp",
	}
}

// DefaultCatalog builds the built-in registry against one poverty-limit
// year. The returned registry is immutable; hand it to the orchestrator.
func DefaultCatalog(year *fpl.Year) (*engine.Registry, error) {
	return engine.NewRegistry(
		Snap("snap", year),
		MedicareSavings("msp", year),
		NurseFamilyPartnership("nfp", year),
		TransitReducedFare("transit_reduced_fare", year),
		Medicaid("co_medicaid"),
		Medicaid("il_medicaid"),
		Tanf("tanf"),
		Eitc("eitc"),
		Csfp("csfp"),
	)
}
