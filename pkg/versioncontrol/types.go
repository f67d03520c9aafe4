package versioncontrol

// UpdateManifest maps component name to its ordered, oldest-to-newest list
// of pending updates.
type UpdateManifest map[string][]Update

// Update is one pending update for one component, as returned by the
// manifest negotiation endpoint.
type Update struct {
	Chainlink bool   `json:"chainlink"`
	Checksum  string `json:"checksum"`
	Version   string `json:"version"`
	Changelog string `json:"changelog"`
	FileSize  *int64 `json:"file_size,omitempty"`
}

// manifestResponse mirrors the central server's GET /api/versioncontrol body.
type manifestResponse struct {
	Result bool            `json:"result"`
	Msg    manifestMsgUnion `json:"msg"`
}

// manifestMsgUnion decodes msg, which is either {"manifest": {...}} or a
// bare error string, by trying the object shape first and falling back to a
// string.
type manifestMsgUnion struct {
	Manifest UpdateManifest
	ErrorMsg string
	IsNull   bool
}

// Publisher streams user-visible status and changelog text back over the
// component bus. Implemented by pkg/commandplane.
type Publisher interface {
	PublishState(message string)
	PublishChangelogs(text string)
}

// Leftover is the persisted mapping from component name to the ordered list
// of already-unpacked update directories still pending after a self-upgrade
// deferred them.
type Leftover map[string][]string
