package core

import (
	"fmt"
	"reflect"

	"github.com/encodeous/strand/state"
)

func Get[T state.Module](s *state.State) T {
	t := reflect.TypeFor[T]()
	return s.Modules[t.String()].(T)
}

// describeFrame renders a frame for logs, summarising anything too large to print
func describeFrame(frame []byte) string {
	if len(frame) > state.LogTruncateThreshold {
		return fmt.Sprintf("<%d bytes>", len(frame))
	}
	return string(frame)
}
