package processor

import (
	"context"
	"os"
)

// Raw copies files byte-for-byte.
type Raw struct {
	exts   extensionSet
	mapper Mapper
}

// NewRaw creates the raw passthrough processor.
func NewRaw(exts []string, mapper Mapper) *Raw {
	return &Raw{exts: newExtensionSet(exts), mapper: mapper}
}

func (p *Raw) Kind() Kind { return KindRaw }

func (p *Raw) Matches(ext string) bool { return p.exts.contains(ext) }

func (p *Raw) Destination(source string) (string, bool) {
	return p.mapper.Destination(source, KindRaw)
}

func (p *Raw) Execute(ctx context.Context, source, destination string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := os.Open(source)
	if err != nil {
		return 0, NewError(ErrCodeReadFailed, KindRaw, source, err)
	}
	defer f.Close()

	n, err := writeAtomic(destination, f)
	if err != nil {
		return 0, NewError(ErrCodeWriteFailed, KindRaw, source, err)
	}
	return n, nil
}
