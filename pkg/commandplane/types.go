package commandplane

// Inbound/outbound command tags, as spec'd for the component and central
// buses (4.I). Tags serialize as these exact textual names.
const (
	TagRefreshUpdateManifest         = "RefreshUpdateManifest"
	TagStartUpdateDownloadAndInstall = "StartUpdateDownloadAndInstall"
	TagComponentStates               = "ComponentStates"
	TagComponentLog                  = "ComponentLog"
	TagChangelogs                    = "Changelogs"
	TagUpdateStarted                 = "UpdateStarted"
	TagState                         = "State"

	TagRemoteManagement = "RemoteManagement"
	TagUpdateInstall    = "UpdateInstall"
	TagOnline            = "Online"
	TagOffline           = "Offline"
)
