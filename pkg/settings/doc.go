/*
Package settings is the agent's typed durable configuration: a single JSON
document at /etc/NeutronCommunicator/settings.json (see DefaultPath).

Load injects a synthetic "NeutronCommunicator" UpdateComponent representing
the agent itself, so the version-control engine can treat self-upgrade like
any other component; Save strips it back out before writing, so it is never
persisted. Every mutator (SetCentralCredentials, AddUpdateComponent,
AddCertificate, ...) loads the current document, applies one change, and
writes the whole document back — there is no partial-update path.
*/
package settings
