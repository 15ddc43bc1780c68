package arkkies

import (
	"fmt"
	"time"
)

// Endpoint paths of the Arkkies API, relative to the configured base URL.
const (
	PathLoginFlow           = "/auth/provider/public/self-service/login/browser?refresh=true"
	PathWhoami              = "/auth/provider/public/sessions/whoami"
	PathActiveSubscriptions = "/customer/subscription/active"
	PathActivePasses        = "/customer/pass/active"
	PathCreateBooking       = "/brand/outlet/booking"
	PathUnlockDoor          = "/brand/outlet/door/unlock"
)

func PathLoginSubmit(flowID string) string {
	return fmt.Sprintf("/auth/provider/public/self-service/login?flow=%s", flowID)
}

// PathSlots queries gym-access availability at an outlet over a 7-day
// window. The trailing "*" is a literal topic wildcard, not globbing.
func PathSlots(destinationOutletID string) string {
	return fmt.Sprintf("/brand/outlet/booking/slot/destination/%s/filter/access-type/type/gym-access/days/7/topic/*", destinationOutletID)
}

// LoginFlow is the Kratos self-service login flow envelope. The CSRF token
// sits inside the rendered UI node list rather than a dedicated field.
type LoginFlow struct {
	ID string `json:"id"`
	UI struct {
		Nodes []UINode `json:"nodes"`
	} `json:"ui"`
}

type UINode struct {
	Attributes struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	} `json:"attributes"`
}

// CSRFToken scans the flow's UI nodes for the csrf_token field. Empty when
// the flow shape changed on us.
func (f *LoginFlow) CSRFToken() string {
	for _, node := range f.UI.Nodes {
		if node.Attributes.Name == "csrf_token" {
			if v, ok := node.Attributes.Value.(string); ok {
				return v
			}
		}
	}
	return ""
}

type LoginSubmission struct {
	Method             string `json:"method"`
	PasswordIdentifier string `json:"password_identifier"`
	Password           string `json:"password"`
	CSRFToken          string `json:"csrf_token"`
}

type Whoami struct {
	Identity struct {
		ID string `json:"id"`
	} `json:"identity"`
	Session struct {
		ExpiresAt *time.Time `json:"expires_at"`
	} `json:"session"`
}

type BookingRequest struct {
	TimeStart      time.Time `json:"time_start"`
	TimeEnd        time.Time `json:"time_end"`
	PurposeType    string    `json:"purpose_type"`
	SlotID         string    `json:"slot_id"`
	EntitlementIDs []string  `json:"entitlement_ids"`
}

type UnlockRequest struct {
	DoorID string `json:"door_id"`
}
