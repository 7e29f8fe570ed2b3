package storage

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mdfront/mdfront/pkg/locator"
	"github.com/spf13/afero"
)

func TestPaths(t *testing.T) {
	s := NewStateStorage(afero.NewMemMapFs(), locator.At("/saves"))
	s.SetMainSaveName("Sonic")

	tests := []struct {
		slot int
		want string
		err  error
	}{
		{slot: 0, want: "/saves/Sonic.state"},
		{slot: 1, want: "/saves/Sonic.state1"},
		{slot: 9, want: "/saves/Sonic.state9"},
		{slot: 10, err: ErrBadSlot},
		{slot: -1, err: ErrBadSlot},
	}
	for _, tt := range tests {
		got, err := s.GetSavePath(tt.slot)
		if !errors.Is(err, tt.err) {
			t.Errorf("slot %d: expected error %v, got %v", tt.slot, tt.err, err)
		}
		if got != tt.want {
			t.Errorf("slot %d: expected %q, got %q", tt.slot, tt.want, got)
		}
	}
	if p, _ := s.GetSRAMPath(); p != "/saves/Sonic.srm" {
		t.Errorf("wrong sram path %q", p)
	}

	z := &ZipStorage{Storage: s}
	if p, _ := z.GetSRAMPath(); p != "/saves/Sonic.srm.zip" {
		t.Errorf("wrong zip sram path %q", p)
	}
}

func TestDisabled(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, s := range []Storage{New(fs, locator.At(""), false), New(fs, locator.Location{}, true)} {
		s.SetMainSaveName("game")
		if s.Enabled() {
			t.Errorf("%T must be disabled", s)
		}
		if _, err := s.GetSRAMPath(); !errors.Is(err, ErrNoLocation) {
			t.Errorf("%T: expected ErrNoLocation, got %v", s, err)
		}
		if err := s.Save("/x.srm", []byte{1}); !errors.Is(err, ErrNoLocation) {
			t.Errorf("%T: expected ErrNoLocation, got %v", s, err)
		}
		if _, err := s.Load("/x.srm"); !errors.Is(err, ErrNoLocation) {
			t.Errorf("%T: expected ErrNoLocation, got %v", s, err)
		}
	}
	if n, _ := afero.ReadDir(fs, "/"); len(n) != 0 {
		t.Errorf("disabled storage wrote %d files", len(n))
	}
}

func TestNoName(t *testing.T) {
	s := NewStateStorage(afero.NewMemMapFs(), locator.At("/saves"))
	if _, err := s.GetSavePath(0); !errors.Is(err, ErrNoName) {
		t.Errorf("expected ErrNoName, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	for _, compress := range []bool{false, true} {
		fs := afero.NewMemMapFs()
		_ = fs.MkdirAll("/saves", 0755)
		s := New(fs, locator.At("/saves"), compress)
		s.SetMainSaveName("game")

		path, _ := s.GetSRAMPath()
		data := bytes.Repeat([]byte{0xAB, 0xCD}, 4096)
		if err := s.Save(path, data); err != nil {
			t.Fatalf("compress=%v: save: %v", compress, err)
		}
		// overwrite keeps a single file
		if err := s.Save(path, data); err != nil {
			t.Fatalf("compress=%v: save: %v", compress, err)
		}
		got, err := s.Load(path)
		if err != nil {
			t.Fatalf("compress=%v: load: %v", compress, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("compress=%v: data mismatch", compress)
		}
		files, _ := afero.ReadDir(fs, "/saves")
		if len(files) != 1 {
			t.Errorf("compress=%v: expected one file, have %d", compress, len(files))
		}
	}
}

func TestWriteFileFailureKeepsOld(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/s/a.srm", []byte("old"), 0644)

	ro := afero.NewReadOnlyFs(fs)
	if err := WriteFile(ro, "/s/a.srm", []byte("new")); err == nil {
		t.Fatalf("write into a read-only fs must fail")
	}
	got, _ := afero.ReadFile(fs, "/s/a.srm")
	if string(got) != "old" {
		t.Errorf("old file was damaged: %q", got)
	}
}
