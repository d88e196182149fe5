package roster

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(filepath.Join(t.TempDir(), "students.json"), language.Chinese, zap.NewNop())
	if err := r.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return r
}

func TestRegistry_AddRemove(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name string
		op   func() (bool, error)
		want bool
	}{
		{"add new", func() (bool, error) { return r.Add("Alice") }, true},
		{"add duplicate", func() (bool, error) { return r.Add("Alice") }, false},
		{"add empty", func() (bool, error) { return r.Add("") }, false},
		{"case is significant", func() (bool, error) { return r.Add("alice") }, true},
		{"remove present", func() (bool, error) { return r.Remove("alice") }, true},
		{"remove absent", func() (bool, error) { return r.Remove("Bob") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if got := r.List(); len(got) != 1 || got[0] != "Alice" {
		t.Errorf("List() = %v, want [Alice]", got)
	}
}

func TestRegistry_BatchImport(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Add("Bob"); err != nil {
		t.Fatal(err)
	}

	added, err := r.BatchImport([]string{"Alice", "Bob", "", "Carol", "Alice"})
	if err != nil {
		t.Fatalf("BatchImport() error = %v", err)
	}
	if added != 2 {
		t.Errorf("BatchImport() = %d, want 2", added)
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestRegistry_PersistsEveryMutation(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.BatchImport([]string{"王五", "张三", "李四"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Remove("王五"); err != nil {
		t.Fatal(err)
	}

	reloaded := NewRegistry(r.path, language.Chinese, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(reloaded.List(), ","); got != strings.Join(r.List(), ",") {
		t.Errorf("reloaded roster = %s, want %s", got, strings.Join(r.List(), ","))
	}
	if reloaded.Contains("王五") {
		t.Error("removed person survived reload")
	}
}

func TestRegistry_SaveWaitsForFileLock(t *testing.T) {
	r := newTestRegistry(t)
	lock := &sync.Mutex{}
	r.SetFileLock(lock)

	lock.Lock()
	done := make(chan error, 1)
	go func() {
		_, err := r.Add("Alice")
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("Add() returned while the file lock was held (err = %v)", err)
	default:
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "Alice") {
		t.Errorf("roster file changed under the lock: %s", data)
	}

	lock.Unlock()
	if err := <-done; err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	data, err = os.ReadFile(r.path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Alice") {
		t.Errorf("roster file = %s, want Alice", data)
	}
	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(r.path), "*.tmp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestRegistry_ListUsesPinyinOrder(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.BatchImport([]string{"张三", "王五", "李四", "艾伦"}); err != nil {
		t.Fatal(err)
	}

	// ai < li < wang < zhang
	want := "艾伦,李四,王五,张三"
	if got := strings.Join(r.List(), ","); got != want {
		t.Errorf("List() = %s, want %s", got, want)
	}
}

func TestRegistry_LoadDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.json")
	if err := os.WriteFile(path, []byte(`["Alice", `), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(path, language.Chinese, nil)
	if err := r.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistry_LoadDropsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.json")
	if err := os.WriteFile(path, []byte(`["Bob", "Alice", "Bob", ""]`), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(path, language.English, nil)
	if err := r.Load(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(r.List(), ","); got != "Alice,Bob" {
		t.Errorf("List() = %s, want Alice,Bob", got)
	}
}

func TestReadNames(t *testing.T) {
	dir := t.TempDir()

	textPath := filepath.Join(dir, "names.txt")
	if err := os.WriteFile(textPath, []byte("\ufeff张三\n  李四  \n\n王五，赵六, 钱七\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	for i, v := range []string{"姓名", "Alice", "", " Bob "} {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := book.SetCellValue(sheet, cell, v); err != nil {
			t.Fatal(err)
		}
	}
	sheetPath := filepath.Join(dir, "names.xlsx")
	if err := book.SaveAs(sheetPath); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want string
	}{
		{textPath, "张三,李四,王五,赵六,钱七"},
		{sheetPath, "Alice,Bob"},
	}

	for _, tt := range tests {
		t.Run(filepath.Ext(tt.path), func(t *testing.T) {
			names, err := ReadNames(tt.path)
			if err != nil {
				t.Fatalf("ReadNames() error = %v", err)
			}
			if got := strings.Join(names, ","); got != tt.want {
				t.Errorf("ReadNames() = %s, want %s", got, tt.want)
			}
		})
	}
}
