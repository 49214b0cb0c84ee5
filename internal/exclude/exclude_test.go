package exclude

import (
	"reflect"
	"testing"

	"github.com/nao1215/scanlibs/internal/model"
)

// TestFilter tests outcome filtering against exclusion sets.
func TestFilter(t *testing.T) {
	t.Parallel()

	t.Run("drops default system libraries", func(t *testing.T) {
		t.Parallel()

		o := model.Dependencies([]string{"libc.so", "libx.so"}, []string{"libc.so"})
		got := Filter(o, Default())

		if want := []string{"libx.so"}; !reflect.DeepEqual(got.Linked(), want) {
			t.Errorf("got linked %v, expected %v", got.Linked(), want)
		}
		if len(got.Runtime()) != 0 {
			t.Errorf("expected empty runtime, got %v", got.Runtime())
		}
	})

	t.Run("unparseable passes through", func(t *testing.T) {
		t.Parallel()

		if got := Filter(model.Unparseable(), Default()); !got.IsUnparseable() {
			t.Error("expected unparseable outcome")
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		o := model.Dependencies(
			[]string{"liba.so", "liblog.so", "libb.so", "libm.so"},
			[]string{"libdl.so", "libc.so", "libz.so"},
		)
		once := Filter(o, Default())
		twice := Filter(once, Default())
		if !once.Equal(twice) {
			t.Errorf("filter not idempotent: %v then %v", once.All(), twice.All())
		}
	})

	t.Run("keeps relative order", func(t *testing.T) {
		t.Parallel()

		o := model.Dependencies([]string{"libz.so", "libc.so", "liba.so", "libm.so", "libq.so"}, nil)
		got := Filter(o, Default())
		if want := []string{"libz.so", "liba.so", "libq.so"}; !reflect.DeepEqual(got.Linked(), want) {
			t.Errorf("got %v, expected %v", got.Linked(), want)
		}
	})

	t.Run("does not modify the input", func(t *testing.T) {
		t.Parallel()

		o := model.Dependencies([]string{"libc.so", "libx.so"}, nil)
		_ = Filter(o, Default())
		if want := []string{"libc.so", "libx.so"}; !reflect.DeepEqual(o.Linked(), want) {
			t.Errorf("input changed to %v", o.Linked())
		}
	})

	t.Run("matches the file name of path entries", func(t *testing.T) {
		t.Parallel()

		o := model.Dependencies(nil, []string{"/system/lib/liblog.so", "/vendor/lib/libq.so"})
		got := Filter(o, Default())
		if want := []string{"/vendor/lib/libq.so"}; !reflect.DeepEqual(got.Runtime(), want) {
			t.Errorf("got %v, expected %v", got.Runtime(), want)
		}
	})

	t.Run("empty set keeps everything", func(t *testing.T) {
		t.Parallel()

		o := model.Dependencies([]string{"libc.so"}, []string{"libm.so"})
		if got := Filter(o, Set{}); !got.Equal(o) {
			t.Errorf("got %v, expected %v", got.All(), o.All())
		}
	})
}

// TestSet tests exclusion set construction and lookup.
func TestSet(t *testing.T) {
	t.Parallel()

	t.Run("default holds the system libraries", func(t *testing.T) {
		t.Parallel()

		set := Default()
		if set.Len() != 7 {
			t.Errorf("expected 7 names, got %d", set.Len())
		}
		for _, name := range DefaultNames() {
			if !set.Contains(name) {
				t.Errorf("expected %q in default set", name)
			}
		}
		if set.Contains("libssl.so") {
			t.Error("unexpected libssl.so in default set")
		}
	})

	t.Run("names are sorted and empty names ignored", func(t *testing.T) {
		t.Parallel()

		set := NewSet("libz.so", "", "liba.so", "libz.so")
		if want := []string{"liba.so", "libz.so"}; !reflect.DeepEqual(set.Names(), want) {
			t.Errorf("got %v, expected %v", set.Names(), want)
		}
	})

	t.Run("path members only match exactly", func(t *testing.T) {
		t.Parallel()

		set := NewSet("/system/lib/libc.so")
		if !set.Contains("/system/lib/libc.so") {
			t.Error("expected exact path match")
		}
		if set.Contains("libc.so") {
			t.Error("unexpected match of bare name against path member")
		}
	})
}
