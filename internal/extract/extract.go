package extract

import (
	"bytes"
	"debug/elf"

	"github.com/nao1215/scanlibs/internal/model"
)

// Section names consulted during extraction.
const (
	dynamicSection = ".dynamic"
	rodataSection  = ".rodata"
)

// Extract parses data as an ELF image and returns its dependencies.
// Runtime candidates are reduced to their file name ("libbaz.so").
//
// Extract never panics and never returns an error: data that is not a
// usable ELF image yields model.Unparseable(). A valid image without
// .dynamic or .rodata yields empty dependency lists.
func Extract(data []byte) model.Outcome {
	return extract(data, false)
}

// ExtractFullPaths is like Extract but keeps runtime candidates exactly as
// matched, including any directory prefix ("/system/lib/libbaz.so").
func ExtractFullPaths(data []byte) model.Outcome {
	return extract(data, true)
}

func extract(data []byte, fullPaths bool) (out model.Outcome) {
	// debug/elf is not hardened against every malformed input.
	defer func() {
		if r := recover(); r != nil {
			out = model.Unparseable()
		}
	}()

	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return model.Unparseable()
	}
	defer f.Close()

	linked, err := neededLibraries(f)
	if err != nil {
		return model.Unparseable()
	}

	runtime, err := runtimeCandidates(f, fullPaths)
	if err != nil {
		return model.Unparseable()
	}

	return model.DependencySets(linked, runtime)
}

// neededLibraries returns the DT_NEEDED entries of the dynamic section.
// readelf -d shows the same list as "(NEEDED)" lines.
func neededLibraries(f *elf.File) (*model.OrderedSet[string], error) {
	libs := model.NewOrderedSet[string]()
	if f.Section(dynamicSection) == nil {
		return libs, nil
	}

	needed, err := f.DynString(elf.DT_NEEDED)
	if err != nil {
		return nil, err
	}
	for _, name := range needed {
		libs.Add(name)
	}
	return libs, nil
}

// runtimeCandidates scans .rodata for library-like strings.
func runtimeCandidates(f *elf.File, fullPaths bool) (*model.OrderedSet[string], error) {
	libs := model.NewOrderedSet[string]()
	sec := f.Section(rodataSection)
	if sec == nil || sec.Type == elf.SHT_NOBITS {
		return libs, nil
	}

	data, err := sec.Data()
	if err != nil {
		return nil, err
	}
	for _, name := range scanLibraryNames(data, fullPaths) {
		libs.Add(name)
	}
	return libs, nil
}
