package upstream

import (
	. "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"time"
)

const DefaultUsersURL = "https://jsonplaceholder.typicode.com/users"

type Config struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

func (c *Config) Validate() error {
	return ValidateStruct(c,
		Field(&c.URL, Required, is.URL),
		Field(&c.Timeout, Required, Min(time.Second), Max(5*time.Minute)),
	)
}
