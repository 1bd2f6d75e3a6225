package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// decodeJSON accepts either a scene object or a bare array of faces.
func decodeJSON(ctx context.Context, data []byte) (*model.Scene, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, eris.New("json: empty document")
	}

	if trimmed[0] != '[' {
		var doc SceneDoc
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, eris.Wrap(err, "json: decode scene")
		}
		return doc.Scene()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var docs []FaceDoc
	faceCh, errCh := decodeJSONArray[FaceDoc](ctx, bytes.NewReader(trimmed))
	for d := range faceCh {
		docs = append(docs, d)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	faces, err := records(docs)
	if err != nil {
		return nil, err
	}
	return &model.Scene{Faces: faces}, nil
}

// decodeJSONArray decodes a JSON array streaming, sending each element to a channel.
// Both channels are closed when processing completes.
func decodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)

		tok, err := decoder.Token()
		if err != nil {
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			errCh <- eris.Errorf("json: expected '[', got %v", tok)
			return
		}

		for decoder.More() {
			var item T
			if err := decoder.Decode(&item); err != nil {
				errCh <- eris.Wrap(err, "json: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		if _, err := decoder.Token(); err != nil {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return outCh, errCh
}
