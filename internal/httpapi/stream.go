// Package httpapi is the HTTP driver-contract demo for
// internal/blockcipher: it reads a request body chunk by chunk, pumps
// it through a Transform, and streams the other side straight back to
// the client. PUT encrypts a request body, GET decrypts one, both
// addressed by an opaque object key rather than a stream ID.
package httpapi

import (
	"io"
	"log"

	"github.com/kenneth/xmlenc-transform/internal/blockcipher"
	"github.com/kenneth/xmlenc-transform/internal/debug"
)

// chunkSize is how much of the request body is read per Execute call.
// It has no bearing on correctness — blockcipher.Transform tolerates
// arbitrary chunking — only on memory/latency tradeoffs.
const chunkSize = 64 * 1024

// pump drives t to completion, reading chunks from src and writing
// whatever t produces to dst after each one. It is the HTTP driver's
// only point of contact with the transform's streaming contract.
func pump(t *blockcipher.Transform, src io.Reader, dst io.Writer) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if err := t.InBuf().Append(buf[:n]); err != nil {
				return written, err
			}
			last := readErr == io.EOF
			if err := t.Execute(last); err != nil {
				return written, err
			}
			if debug.Enabled() {
				log.Printf("httpapi: pumped %d bytes into transform (last=%v, status=%s)", n, last, t.Status())
			}
			if nw, err := drain(t, dst); err != nil {
				return written + nw, err
			} else {
				written += nw
			}
			if last {
				return written, nil
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				if err := t.Execute(true); err != nil {
					return written, err
				}
				nw, err := drain(t, dst)
				return written + nw, err
			}
			return written, readErr
		}
	}
}

func drain(t *blockcipher.Transform, dst io.Writer) (int64, error) {
	out := t.OutBuf()
	if out.Size() == 0 {
		return 0, nil
	}
	n, err := dst.Write(out.Bytes())
	if err != nil {
		return int64(n), err
	}
	out.Clear()
	return int64(n), nil
}
