package tenant

import "errors"

var ErrTenantNotSet = errors.New("tenant is not set")
