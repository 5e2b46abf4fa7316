package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"orgs-sync/internal/gateway"
)

func TestBuildPayload_EditRoundTrip(t *testing.T) {
	record := gateway.Record{"Id": "a1", "Name": "Acme", "Phone": "555", "Industry": "Tech", "Owner": "zoe"}

	submitted := map[string]any{}
	for _, fd := range ProjectFormFields(accountInfo, record, ModeEdit) {
		submitted[fd.Name] = fd.Value
	}

	payload := BuildPayload(accountInfo, record, ModeEdit, submitted)
	// record restricted to form fields plus Id
	assert.Equal(t, gateway.Record{"Id": "a1", "Name": "Acme", "Phone": "555", "Industry": "Tech"}, payload)
}

func TestBuildPayload_EditIgnoresSubmittedId(t *testing.T) {
	draft := gateway.Record{"Id": "a1", "Name": "Acme"}
	payload := BuildPayload(accountInfo, draft, ModeEdit, map[string]any{"Id": "hijack", "Name": "Acme2"})
	assert.Equal(t, gateway.Record{"Id": "a1", "Name": "Acme2"}, payload)
}

func TestBuildPayload_Create(t *testing.T) {
	payload := BuildPayload(accountInfo, nil, ModeCreate, map[string]any{
		"Name":    "Acme2",
		"Id":      "client-side",
		"Unknown": "dropped",
	})
	assert.Equal(t, gateway.Record{"Name": "Acme2"}, payload)
}
