// Package authcore is a credential and session lifecycle engine: password
// login, a mailed one-time code as second factor, rotating refresh tokens and
// signed email-ownership tokens.
//
// # Flow
//
//	Register -> ConfirmEmail -> Login (code mailed) -> ValidateOTP (session)
//	         -> Refresh (rotate) -> Logout (revoke)
//
// Login never returns a session. The session is created only by ValidateOTP.
//
// # Construction
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithStore(store).
//		WithMailTransport(transport).
//		WithLogger(log).
//		Build()
//
// # Errors
//
// Every error returned by an Engine method is, or wraps, an [*Error] whose
// [Kind] drives transport mapping. Storage and crypto failures surface as
// [ErrInternal]; their detail is logged, not returned.
//
// # Background work
//
// Marking an email verified and stamping last-login run on a bounded
// background runner. Mail is delivered by a bounded queue; a full queue is
// reported as [ErrMailQueueFull].
package authcore
