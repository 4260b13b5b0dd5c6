// Package system runs lifecycle-managed components.
package system

import "context"

// Service is a component with a background lifecycle, such as the realtime
// hub or the rate limiter janitor. The manager starts services in
// registration order and stops them in reverse.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
