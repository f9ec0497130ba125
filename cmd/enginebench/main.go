// enginebench opens an Engine, inserts/updates/deletes/scans a generated
// table, and prints BufferPool stats. Run: go run ./cmd/enginebench
//
// The adapted descendant of the teacher's cmd/seed and cmd/dump_sample
// tools, now exercising this engine's public surface instead of
// DaemonDB's heap file format.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/huanguang-z/rowstore/config"
	"github.com/huanguang-z/rowstore/engine"
	"github.com/huanguang-z/rowstore/internal/record"
	"github.com/huanguang-z/rowstore/table"
)

func main() {
	baseDir := flag.String("dir", "databases/enginebench", "base directory for the segment files")
	rows := flag.Int("rows", 500, "number of rows to insert")
	flag.Parse()

	if err := os.MkdirAll(*baseDir, 0755); err != nil {
		log.Fatalf("mkdir %s: %v", *baseDir, err)
	}

	opts := config.DefaultStorageOptions()
	eng, err := engine.Open(*baseDir, opts, nil, nil)
	if err != nil {
		log.Fatalf("open engine: %v", err)
	}
	defer eng.Close()

	schema, err := record.NewSchema([]record.Column{
		{Name: "id", Type: record.INT32},
		{Name: "name", Type: record.VARCHAR, Len: 64},
	}, false)
	if err != nil {
		log.Fatalf("schema: %v", err)
	}

	const segID = uint32(0)
	heap, err := eng.OpenTable(segID, schema)
	if err != nil {
		log.Fatalf("open table: %v", err)
	}

	rids := make([]table.RID, 0, *rows)
	for i := 0; i < *rows; i++ {
		b := record.NewTupleBuilder(schema)
		if err := b.SetInt32(0, int32(i)); err != nil {
			log.Fatalf("set id: %v", err)
		}
		if err := b.SetVarchar(1, fmt.Sprintf("row-%d", i)); err != nil {
			log.Fatalf("set name: %v", err)
		}
		tuple, err := b.Build()
		if err != nil {
			log.Fatalf("build: %v", err)
		}
		rid, err := heap.Insert(tuple)
		if err != nil {
			log.Fatalf("insert %d: %v", i, err)
		}
		rids = append(rids, rid)
	}
	fmt.Printf("inserted %d rows\n", len(rids))

	for i := 0; i < len(rids); i += 10 {
		b := record.NewTupleBuilder(schema)
		if err := b.SetInt32(0, int32(i)); err != nil {
			log.Fatalf("set id: %v", err)
		}
		if err := b.SetVarchar(1, fmt.Sprintf("updated-row-%d-with-much-longer-name-to-force-growth", i)); err != nil {
			log.Fatalf("set name: %v", err)
		}
		tuple, err := b.Build()
		if err != nil {
			log.Fatalf("build: %v", err)
		}
		newRID, relocated, err := heap.Update(rids[i], tuple)
		if err != nil {
			log.Fatalf("update %d: %v", i, err)
		}
		rids[i] = newRID
		if relocated {
			fmt.Printf("row %d relocated to %s\n", i, newRID)
		}
	}

	for i := 1; i < len(rids); i += 7 {
		if err := heap.Erase(rids[i]); err != nil {
			log.Fatalf("erase %d: %v", i, err)
		}
	}

	count := 0
	it := table.NewIterator(heap)
	for {
		_, _, ok, err := it.Next()
		if err != nil {
			log.Fatalf("scan: %v", err)
		}
		if !ok {
			break
		}
		count++
	}
	fmt.Printf("scan found %d live rows\n", count)

	stats, err := eng.Stats(segID)
	if err != nil {
		log.Fatalf("stats: %v", err)
	}
	fmt.Printf("bufferpool stats: %+v\n", stats)
}
