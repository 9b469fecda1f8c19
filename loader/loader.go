// Package loader runs generated import scripts against PostgreSQL.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
)

var ErrMalformedScript = errors.New("malformed script")

const copyTerminator = `\.`

// Script is an import script split around its COPY block.
type Script struct {
	Head string
	Copy string
	Data []byte
	Tail string
}

// ParseScript splits a script into the statements before the COPY, the
// COPY statement itself, the rows it consumes and the statements after.
func ParseScript(r io.Reader) (*Script, error) {
	const (
		inHead = iota
		inData
		inTail
	)
	var (
		s          Script
		head, tail strings.Builder
		data       bytes.Buffer
		state      = inHead
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch state {
		case inHead:
			if strings.HasPrefix(line, "COPY ") && strings.HasSuffix(line, "FROM stdin;") {
				s.Copy = strings.TrimSuffix(line, ";")
				state = inData
				continue
			}
			head.WriteString(line)
			head.WriteByte('\n')
		case inData:
			if line == copyTerminator {
				state = inTail
				continue
			}
			data.WriteString(line)
			data.WriteByte('\n')
		case inTail:
			tail.WriteString(line)
			tail.WriteByte('\n')
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error reading script: %w", err)
	}
	switch state {
	case inHead:
		return nil, fmt.Errorf("no COPY statement: %w", ErrMalformedScript)
	case inData:
		return nil, fmt.Errorf("unterminated COPY block: %w", ErrMalformedScript)
	}

	s.Head = head.String()
	s.Data = data.Bytes()
	s.Tail = tail.String()
	return &s, nil
}

// Loader executes scripts on a single connection.
type Loader struct {
	conn *pgx.Conn
}

func Connect(ctx context.Context, dsn string) (*Loader, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}
	return &Loader{conn: conn}, nil
}

// Load runs s. The transaction it opens is rolled back on failure.
func (l *Loader) Load(ctx context.Context, s *Script) (err error) {
	pg := l.conn.PgConn()
	defer func() {
		if err != nil {
			if _, rerr := pg.Exec(ctx, "ROLLBACK").ReadAll(); rerr != nil {
				err = errors.Join(err, fmt.Errorf("error rolling back: %w", rerr))
			}
		}
	}()

	if _, err := pg.Exec(ctx, s.Head).ReadAll(); err != nil {
		return fmt.Errorf("error running script head: %w", err)
	}

	tag, err := pg.CopyFrom(ctx, bytes.NewReader(s.Data), s.Copy)
	if err != nil {
		return fmt.Errorf("error copying rows: %w", err)
	}
	slog.Debug("copied rows", "rows", tag.RowsAffected())

	if _, err := pg.Exec(ctx, s.Tail).ReadAll(); err != nil {
		return fmt.Errorf("error running script tail: %w", err)
	}
	return nil
}

// LoadFile loads the script at path and renames it with a .done suffix.
func (l *Loader) LoadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening script: %w", err)
	}
	s, err := ParseScript(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := l.Load(ctx, s); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := os.Rename(path, path+".done"); err != nil {
		return fmt.Errorf("error marking script loaded: %w", err)
	}
	return nil
}

func (l *Loader) Close(ctx context.Context) error {
	return l.conn.Close(ctx)
}
