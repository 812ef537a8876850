package http

import (
	"errors"

	silvererr "github.com/zcamper/silver-scraper/pkg/errors"
)

func MakeAPINotFound(path string) *silvererr.Error {
	return &silvererr.Error{
		Type: silvererr.Missing,
		Help: `The API endpoint requested is not supported by this server.

This indicates that your client (probably silverctl) is either out of
date, or faulty.

If you still have problems, please file an issue at

    https://github.com/zcamper/silver-scraper/issues

mentioning what you were attempting to do, and include this path:

    ` + path + `
`,
		Err: errors.New("API endpoint not found"),
	}
}
