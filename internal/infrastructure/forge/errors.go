package forge

import (
	"io"
	"net/http"

	"forgerelay/internal/ports"
)

// errorFromResponse drains resp.Body (bounded) and returns a
// *ports.ForgeError carrying the status and body, for any non-2xx forge
// response.
func errorFromResponse(resp *http.Response) error {
	if resp == nil {
		return &ports.ForgeError{Status: 0, Body: "no response"}
	}
	const maxBody = 8 << 10
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	return &ports.ForgeError{Status: resp.StatusCode, Body: string(body)}
}
