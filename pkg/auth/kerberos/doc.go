// Package kerberos verifies passwords against a Kerberos KDC.
//
// The password obtains a TGT through an AS exchange. When a host keytab and
// service principal are configured, the TGT is then used to request a
// service ticket for that principal, which must decrypt with the keytab.
// A KDC that does not know the host key cannot produce such a ticket, so
// the check defeats a spoofed KDC answering the AS exchange.
//
// This package wraps the gokrb5 library to provide:
//   - Keytab and krb5.conf loading with environment variable overrides
//   - The "kerberos" authentication method (auth.Backend)
//
// Configuration is defined in pkg/config.KerberosConfig to avoid circular imports.
//
// References:
//   - RFC 4120: The Kerberos Network Authentication Service (V5)
package kerberos
