package schema

import (
	"orgs-sync/internal/gateway"
	"orgs-sync/internal/metadata"
)

// BuildPayload turns submitted form values into the record sent to the
// gateway. Only projected fields present in submitted are carried. In edit
// mode the Id always comes from the draft, so a form cannot change it; create
// payloads carry no Id.
func BuildPayload(info metadata.FieldsInfo, draft gateway.Record, mode Mode, submitted map[string]any) gateway.Record {
	payload := gateway.Record{}
	for _, fd := range ProjectFormFields(info, draft, mode) {
		if fd.Name == metadata.IDField {
			continue
		}
		if v, ok := submitted[fd.Name]; ok {
			payload[fd.Name] = v
		}
	}
	if mode == ModeEdit && draft != nil {
		if id, ok := draft[metadata.IDField]; ok {
			payload[metadata.IDField] = id
		}
	}
	return payload
}
