// Command kerneldemo exercises pkg/engine end to end: open a data root,
// create an index, put/get/scan a handful of rows, then shut down
// cleanly. It is demonstration plumbing only — not a query language or
// network surface.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kestreldb/kernel/pkg/btree"
	"github.com/kestreldb/kernel/pkg/engine"
	"github.com/kestreldb/kernel/pkg/types"
)

func main() {
	dataRoot := flag.String("data", "./kerneldemo-data", "data root directory")
	passphrase := flag.String("passphrase", "", "optional at-rest page encryption passphrase")
	flag.Parse()

	cfg := engine.DefaultConfig(*dataRoot)
	cfg.EncryptionPassphrase = *passphrase

	eng, err := engine.Open(cfg)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer func() {
		if err := eng.Shutdown(); err != nil {
			log.Fatalf("shutdown: %v", err)
		}
	}()

	idx, err := eng.CreateIndex("widgets", types.TagBigInt, types.TagVarchar, 64)
	if err != nil {
		log.Fatalf("create index: %v", err)
	}

	for i := int64(1); i <= 20; i++ {
		key := types.WrapBigInt(i).ToByteBox().Data
		value, err := types.WrapVarchar(fmt.Sprintf("widget-%03d", i), 32)
		if err != nil {
			log.Fatalf("wrap value: %v", err)
		}
		if err := idx.Put(key, value.ToByteBox().Data); err != nil {
			log.Fatalf("put %d: %v", i, err)
		}
	}

	lookupKey := types.WrapBigInt(7).ToByteBox().Data
	got, err := idx.Get(lookupKey)
	if err != nil {
		log.Fatalf("get 7: %v", err)
	}
	fmt.Printf("get(7) = %s\n", types.DecodeVarchar(got))

	it, err := idx.Scan(btree.Range{
		Lower: btree.Included(types.WrapBigInt(5).ToByteBox().Data),
		Upper: btree.Included(types.WrapBigInt(10).ToByteBox().Data),
	})
	if err != nil {
		log.Fatalf("scan: %v", err)
	}
	defer it.Close()

	fmt.Println("scan(5..10):")
	for {
		entry, ok, err := it.Next()
		if err != nil {
			log.Fatalf("scan next: %v", err)
		}
		if !ok {
			break
		}
		k, _ := types.DecodeBigInt(entry.Key)
		fmt.Printf("  %d -> %s\n", k, types.DecodeVarchar(entry.Value))
	}

	fmt.Fprintf(os.Stderr, "stats: %+v\n", eng.Stats())
}
