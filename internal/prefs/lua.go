package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// loadPack runs a locale pack and returns its flattened string table.
// A pack is a Lua chunk that returns a table; nested tables become dotted
// keys, so { nav = { messages = "Nachrichten" } } yields "nav.messages".
// Only the base, string and table libraries are available to packs.
func loadPack(path string) (map[string]string, error) {
	L := lua.NewState(lua.Options{
		CallStackSize: 120,
		RegistrySize:  120 * 20,
		SkipOpenLibs:  true,
	})
	defer L.Close()

	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.TabLibName, lua.OpenTable},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.fn), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			return nil, fmt.Errorf("open lua %s: %w", lib.name, err)
		}
	}
	// Packs must not reach the filesystem through the base library.
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	if err := L.DoFile(path); err != nil {
		return nil, fmt.Errorf("load locale pack %s: %w", path, err)
	}
	tbl, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("locale pack %s: must return a table", path)
	}

	out := make(map[string]string)
	if err := flatten("", tbl, out, 0); err != nil {
		return nil, fmt.Errorf("locale pack %s: %w", path, err)
	}
	return out, nil
}

func flatten(prefix string, tbl *lua.LTable, out map[string]string, depth int) error {
	if depth > 8 {
		return fmt.Errorf("table nested too deeply at %q", prefix)
	}
	var err error
	tbl.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		ks, ok := k.(lua.LString)
		if !ok {
			err = fmt.Errorf("non-string key %v under %q", k, prefix)
			return
		}
		key := string(ks)
		if prefix != "" {
			key = prefix + "." + key
		}
		switch val := v.(type) {
		case lua.LString:
			out[key] = string(val)
		case lua.LNumber:
			out[key] = val.String()
		case *lua.LTable:
			err = flatten(key, val, out, depth+1)
		default:
			err = fmt.Errorf("key %q: unsupported value type %s", key, v.Type())
		}
	})
	return err
}

// packFiles returns the *.lua files in dir keyed by locale code (the file
// name without extension). A missing directory yields no packs.
func packFiles(dir string) (map[string]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read locale dir: %w", err)
	}

	files := make(map[string]string)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, n := range names {
		code := strings.ToLower(strings.TrimSuffix(n, ".lua"))
		files[code] = filepath.Join(dir, n)
	}
	return files, nil
}
