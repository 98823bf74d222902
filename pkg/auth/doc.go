// Package auth orchestrates pluggable authentication backends for dittoauth.
//
// A privilege-escalation request is authenticated by an ordered chain of
// backends. This package owns the orchestration contract and nothing else:
//
//   - Descriptor: one registered backend, its capability flags and last result
//   - Chain: the validated, ordered set of enabled backends (see Build)
//   - VerifyEngine: the bounded retry loop that prompts once per try and asks
//     each backend in turn to accept the shared Credential
//   - Chain.Approve, Chain.BeginSession, Chain.EndSession, Chain.Cleanup:
//     the post-verification phases with their aggregation rules
//   - SuspendableLock: the timestamp lock handed over across job-control stops
//
// Backends implement Backend plus any subset of the optional hook interfaces
// (InitHook, SetupHook, ApprovalHook, CleanupHook, SessionBeginHook,
// SessionEndHook). A missing hook is a no-op.
//
// Sub-packages:
//   - passwd/: bcrypt password file
//   - kerberos/: Kerberos AS exchange with optional keytab TGT verification
//   - directory/: SQL account store with lockout and expiry
//   - otp/: standalone TOTP backend
//   - methods/: builds descriptors from configuration
package auth
