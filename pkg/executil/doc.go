/*
Package executil wraps os/exec so the rest of the agent never spawns a
process directly. This keeps stdout/stderr capture, logging, and passphrase
redaction consistent across openssl, unzip, chmod/chown, systemctl, docker,
curl, and journalctl invocations.
*/
package executil
