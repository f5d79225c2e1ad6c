package policy

import (
	"encoding/json"

	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region kind

// Kind names a reference policy in run metadata and CLI flags.
const (
	KindTable = "table"
	KindFixed = "fixed"
)

// KindOf reports which reference policy produced snap from its shape:
// {"action":...} is Fixed, {"version":...,"entries":...} is Table. Empty or
// unrecognised snapshots give "".
func KindOf(snap state.PolicySnapshot) string {
	if len(snap) == 0 {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(snap, &fields); err != nil {
		return ""
	}
	if _, ok := fields["action"]; ok {
		return KindFixed
	}
	_, hasEntries := fields["entries"]
	_, hasVersion := fields["version"]
	if hasEntries || hasVersion {
		return KindTable
	}
	return ""
}

// #endregion kind
