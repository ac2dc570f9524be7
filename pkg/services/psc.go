package services

import (
	"strings"

	"github.com/scrutinise/ownership-engine/pkg/models"
	"github.com/scrutinise/ownership-engine/pkg/registry"
)

// Control-register percentage bands collapse to their midpoint; an exact
// figure is never disclosed. The right to appoint and remove directors is
// treated as full control, and an entry with no recognised nature of control
// defaults to 50%.
const (
	bandMidpointUpper  = 87.5
	bandMidpointMiddle = 62.5
	bandMidpointLower  = 37.5
	bandFullControl    = 100.0
	bandDefault        = 50.0
)

// IsGuaranteeCompany reports whether a company profile describes a company
// limited by guarantee. Guarantee companies have no share capital, so
// shareholder extraction is skipped in favour of the control register.
func IsGuaranteeCompany(profile *registry.CompanyProfile) bool {
	if profile == nil {
		return false
	}
	return strings.Contains(strings.ToLower(profile.Type), "guarant")
}

// ShareholdersFromPSCs converts active control-register entries into
// shareholder records. Ceased entries are skipped. Percentage bands follow a
// fixed precedence: ownership of shares, then voting rights, then the right
// to appoint directors, then a default for bare significant influence.
// For guarantee companies the voting-rights bands apply first, since no
// share-ownership natures exist without share capital.
func ShareholdersFromPSCs(pscs *registry.PSCList, guarantee bool) []models.Shareholder {
	if pscs == nil {
		return nil
	}

	var out []models.Shareholder
	for _, psc := range pscs.Items {
		if psc.Ceased() {
			continue
		}

		name := psc.Name
		if name == "" {
			name = "Unknown"
		}

		percentage, band := controlBand(psc.NaturesOfControl, guarantee)

		shareClass := "Ordinary"
		if guarantee {
			shareClass = ""
		}

		out = append(out, models.Shareholder{
			Name:           name,
			SharesKnown:    false,
			ShareClass:     shareClass,
			Percentage:     percentage,
			PercentageBand: band,
			Classification: classifyPSC(psc),
			Source:         "PSC Register",
			Method:         models.ExtractionMethodPSCRegister,
			ControlNatures: psc.NaturesOfControl,
		})
	}
	return out
}

func controlBand(natures []string, guarantee bool) (float64, string) {
	has := func(fragment string) bool {
		for _, n := range natures {
			if strings.Contains(n, fragment) {
				return true
			}
		}
		return false
	}

	if !guarantee {
		switch {
		case has("ownership-of-shares-75-to-100"):
			return bandMidpointUpper, "75-100%"
		case has("ownership-of-shares-50-to-75"):
			return bandMidpointMiddle, "50-75%"
		case has("ownership-of-shares-25-to-50"):
			return bandMidpointLower, "25-50%"
		}
	}

	switch {
	case has("voting-rights-75-to-100"):
		return bandMidpointUpper, "75-100% (voting rights)"
	case has("voting-rights-50-to-75"):
		return bandMidpointMiddle, "50-75% (voting rights)"
	case has("voting-rights-25-to-50"):
		return bandMidpointLower, "25-50% (voting rights)"
	case has("right-to-appoint-and-remove-directors"):
		return bandFullControl, "Control (right to appoint directors)"
	default:
		return bandDefault, "Significant control"
	}
}

// classifyPSC uses the register's own kind discriminator, which is more
// reliable than name heuristics when present.
func classifyPSC(psc registry.PSC) models.Classification {
	kind := strings.ToLower(psc.Kind)
	if strings.Contains(kind, "corporate") || strings.Contains(kind, "legal") {
		return models.ClassificationCorporate
	}
	if kind != "" {
		return models.ClassificationIndividual
	}
	return ClassifyShareholder(psc.Name)
}
