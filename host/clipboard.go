//go:build !js

package host

import (
	"sync"

	atotto "github.com/atotto/clipboard"
	"golang.design/x/clipboard"
)

var (
	clipboardOnce sync.Once
	clipboardErr  error
)

func copyText(s string) error {
	clipboardOnce.Do(func() {
		clipboardErr = clipboard.Init()
	})
	if clipboardErr != nil {
		return atotto.WriteAll(s)
	}
	clipboard.Write(clipboard.FmtText, []byte(s))
	return nil
}

func alert(string) {}
