package middleware

import tele "gopkg.in/telebot.v4"

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only the admin user can invoke downstream handlers.
// Updates without a sender are rejected.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.AdminID == 0 {
				return next(c)
			}
			if s := c.Sender(); s == nil || s.ID != opts.AdminID {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

// AllowListOptions configures AllowListMiddleware.
type AllowListOptions struct {
	// AdminID always passes.
	AdminID int64
	Allowed func(userID int64) bool
}

// AllowListMiddleware stops updates from senders that are neither the admin
// nor allowed. Dropped updates get no reply, no callback answer and no log line.
func AllowListMiddleware(opts AllowListOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			s := c.Sender()
			if s == nil {
				return nil
			}
			if (opts.AdminID != 0 && s.ID == opts.AdminID) || (opts.Allowed != nil && opts.Allowed(s.ID)) {
				return next(c)
			}
			return nil
		}
	}
}
