package lobby

import (
	"encoding/json"
	"io"

	"github.com/jabolina/daonet/internal/packet"
)

const frameSize = packet.FrameSize

func unmarshalData(env Envelope, out interface{}) error {
	if len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// readFull reads exactly len(buf) bytes or returns the first error/EOF
// encountered, matching the fixed-chunk read discipline used throughout
// internal/mesh.
func readFull(r io.Reader, buf []byte) (int, error) {
	return io.ReadFull(r, buf)
}
