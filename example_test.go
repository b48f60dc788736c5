package strata_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/strata"
	"github.com/hupe1980/strata/blobstore"
	"github.com/hupe1980/strata/codec"
	"github.com/hupe1980/strata/model"
	"github.com/hupe1980/strata/plan"
)

func Example() {
	ctx := context.Background()

	p, err := plan.Parse("0 => btree(2), _ => btree(2)")
	if err != nil {
		log.Fatal(err)
	}

	entries := []model.Entry[int64, string]{
		{Key: 1, Value: "a"},
		{Key: 3, Value: "b"},
		{Key: 5, Value: "c"},
		{Key: 9, Value: "d"},
	}
	idx, err := strata.Build(ctx, entries, p, codec.String{})
	if err != nil {
		log.Fatal(err)
	}
	defer idx.Close()

	v, ok, _ := idx.Get(ctx, 5)
	fmt.Println(v, ok)

	_, ok, _ = idx.Get(ctx, 4)
	fmt.Println(ok)

	cur := idx.Range(ctx, 2, 9)
	defer cur.Close()
	for cur.Next() {
		fmt.Println(cur.Key(), cur.Value())
	}
	// Output:
	// c true
	// false
	// 3 b
	// 5 c
	// 9 d
}

func ExampleOpen() {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	p, _ := plan.New().At(0, plan.PGM(8)).Otherwise(plan.BTree(16)).Build()

	entries := make([]model.Entry[uint64, uint64], 1000)
	for i := range entries {
		entries[i] = model.Entry[uint64, uint64]{Key: uint64(i) * 10, Value: uint64(i)}
	}
	built, err := strata.Build(ctx, entries, p, codec.Uint64{})
	if err != nil {
		log.Fatal(err)
	}
	if err := built.SaveTo(ctx, store, "numbers.strata"); err != nil {
		log.Fatal(err)
	}

	// Keep only the root in memory.
	idx, err := strata.Open[uint64, uint64](ctx, store, "numbers.strata", 1, codec.Uint64{})
	if err != nil {
		log.Fatal(err)
	}
	defer idx.Close()

	v, ok, _ := idx.Get(ctx, 4200)
	fmt.Println(v, ok)

	n, _ := idx.Len(ctx)
	fmt.Println(n)
	// Output:
	// 420 true
	// 1000
}
