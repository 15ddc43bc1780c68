package service

import "github.com/liftlog/arkkies-bridge/internal/model"

// Outlets the integration knows about. Also doubles as the fallback
// candidate list for entitlement discovery: some accounts only surface their
// passes under the outlet they were purchased at.
var supportedOutlets = []model.Outlet{
	{ID: "AGRBGK01", Name: "Geylang"},
	{ID: "AGRBSH01", Name: "Sengkang Heights"},
	{ID: "AGRBTP01", Name: "Tampines"},
	{ID: "AGRBJE01", Name: "Jurong East"},
	{ID: "AGRBWD01", Name: "Woodlands"},
	{ID: "AGRBCT01", Name: "City Hall"},
}

// SupportedOutlets returns the static outlet lookup table. No I/O.
func SupportedOutlets() []model.Outlet {
	out := make([]model.Outlet, len(supportedOutlets))
	copy(out, supportedOutlets)
	return out
}

func fallbackOutletIDs() []string {
	ids := make([]string, 0, len(supportedOutlets))
	for _, o := range supportedOutlets {
		ids = append(ids, o.ID)
	}
	return ids
}
