// Package supervisor talks to whatever started the process.
//
// A supervisor is a parent process or service manager that wants to know when
// the process is ready and may ask it to stop. Three transports are
// supported, picked by Detect from the environment:
//
//   - an inherited channel file descriptor named by GRACEFUL_CHANNEL_FD,
//     carrying newline-delimited JSON strings in both directions;
//   - the systemd notification socket named by NOTIFY_SOCKET, which only
//     receives state changes such as READY=1;
//   - Nop when neither is present, so readiness signalling is a no-op.
//
// Inbound messages are exposed as a channel so they can feed
// shutdown.Messages. Only the pipe transport has inbound messages.
package supervisor
