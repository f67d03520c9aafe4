// Package remoteadmin implements the RemoteManagement side effects: writing
// an operator's SSH public key to the root authorized_keys file and
// restarting sshd, plus looking up this host's WAN IP so the agent can
// report how to reach it back. Kept separate from pkg/commandplane so that
// package stays a thin dispatcher.
package remoteadmin
