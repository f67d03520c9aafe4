/*
Package security implements the agent's certificate lifecycle: digest and
file-permission primitives (SHA256File, SetPermissions), the openssl-driven
CA/leaf generation builders (GenerateCA, GenerateCertificate,
GenCSRSignWithKey), and the long-lived renewal watchdog (Watchdog).

All certificate and key material is produced by shelling out to openssl —
this package never holds a crypto/x509 in-process implementation, because
the material it produces is loaded by other programs (systemd services,
containers) that expect ordinary PEM files on disk, and because openssl's
CLI behavior (particularly its habit of writing progress to stderr on a
successful run) is part of the contract being preserved, not papered over.
*/
package security
