package config

import (
	. "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"time"
)

// Validate checks the settings shared by every component. Component configs
// (logger, postgres, upstream) validate their own fields on construction.
func (c *Config) Validate() error {
	return ValidateStruct(c,
		Field(&c.UpstreamURL, Required, is.URL),
		Field(&c.UpstreamTimeout, Required, Min(time.Second), Max(5*time.Minute)),
		Field(&c.UIMountID, Required, Length(1, 64)),
		Field(&c.UIRetryMode, Required, In(RetryModeReload, RetryModeScoped)),
		Field(&c.UILoadingRefresh, Required, Min(100*time.Millisecond), Max(time.Minute)),
		Field(&c.SnapshotStore, Required, In(SnapshotStoreMemory, SnapshotStorePostgres)),
		Field(&c.ServerPort, Required, Min(1), Max(65535)),
	)
}
