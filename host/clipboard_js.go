//go:build js

package host

import (
	"errors"
	"syscall/js"
)

func copyText(string) error {
	return errors.New("clipboard is not available in the browser build")
}

// alert is the page's blocking window.alert.
func alert(msg string) {
	js.Global().Call("alert", msg)
}
