// Package catalog loads table definitions from a text catalog file and
// registers their heap files with the table manager.
//
// Lines starting with "#" are comments and are skipped. Every other
// non-empty line has the form
//
//	name (field1 type1, field2 type2 pk, ...)
//
// with type one of {int, string}; a trailing "pk" marks the primary key
// field. The table's data lives in <name>.dat next to the catalog file.
package catalog

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"heapstore/pkg/dberr"
	"heapstore/pkg/memory"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/heap"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// TableDef is one parsed catalog line.
type TableDef struct {
	Name       string
	Schema     *tuple.TupleDescription
	PrimaryKey string
}

// Load parses the catalog at catalogPath and registers every table with tm,
// opening (creating if needed) each table's heap file beside the catalog.
func Load(fs afero.Fs, tm *memory.TableManager, catalogPath primitives.Filepath) error {
	defs, err := Parse(fs, catalogPath)
	if err != nil {
		return err
	}

	dir := primitives.Filepath(catalogPath.Dir())
	for _, def := range defs {
		dataPath := dir.Join(def.Name + ".dat")
		file, err := heap.NewHeapFile(fs, dataPath, def.Schema)
		if err != nil {
			return err
		}
		if err := tm.AddTable(file, def.Name, def.PrimaryKey); err != nil {
			return err
		}
	}
	return nil
}

// Parse reads the catalog file and returns the table definitions without
// opening any data files.
func Parse(fs afero.Fs, catalogPath primitives.Filepath) ([]TableDef, error) {
	f, err := fs.Open(catalogPath.String())
	if err != nil {
		return nil, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeIOFailure,
			"failed to open catalog file")
	}
	defer f.Close()

	var defs []TableDef
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		def, err := parseLine(line)
		if err != nil {
			return nil, dberr.Wrap(err, dberr.CategoryUser, dberr.CodeInvalidCatalog,
				"catalog line "+strconv.Itoa(lineNo))
		}
		defs = append(defs, def)
	}
	if err := scanner.Err(); err != nil {
		return nil, dberr.Wrap(err, dberr.CategorySystem, dberr.CodeIOFailure,
			"failed to read catalog file")
	}

	return defs, nil
}

func parseLine(line string) (TableDef, error) {
	open := strings.Index(line, "(")
	end := strings.LastIndex(line, ")")
	if open < 0 || end < open {
		return TableDef{}, dberr.New(dberr.CategoryUser, dberr.CodeInvalidCatalog,
			"expected `name (field type, ...)`")
	}

	name := strings.TrimSpace(line[:open])
	if name == "" {
		return TableDef{}, dberr.New(dberr.CategoryUser, dberr.CodeInvalidCatalog,
			"table name cannot be empty")
	}

	var (
		fieldTypes []types.Type
		fieldNames []string
		primaryKey string
	)
	for _, part := range strings.Split(line[open+1:end], ",") {
		tokens := strings.Fields(strings.TrimSpace(part))
		if len(tokens) < 2 || len(tokens) > 3 {
			return TableDef{}, dberr.Newf(dberr.CategoryUser, dberr.CodeInvalidCatalog,
				"malformed field declaration %q", strings.TrimSpace(part))
		}

		ft, err := types.ParseType(tokens[1])
		if err != nil {
			return TableDef{}, err
		}

		if len(tokens) == 3 {
			if !strings.EqualFold(tokens[2], "pk") {
				return TableDef{}, dberr.Newf(dberr.CategoryUser, dberr.CodeInvalidCatalog,
					"unexpected token %q", tokens[2])
			}
			primaryKey = tokens[0]
		}

		fieldNames = append(fieldNames, tokens[0])
		fieldTypes = append(fieldTypes, ft)
	}

	schema, err := tuple.NewTupleDesc(fieldTypes, fieldNames)
	if err != nil {
		return TableDef{}, err
	}

	return TableDef{Name: name, Schema: schema, PrimaryKey: primaryKey}, nil
}

