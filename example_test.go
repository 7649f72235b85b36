package shufflego_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/shufflego"
	"github.com/hupe1980/shufflego/record"
)

func ExampleShufflerBuilder() {
	ctx := context.Background()

	schema := record.NewSchema([]record.Field{
		{Name: "id", Type: record.TypeUint32},
	})

	builder, err := shufflego.NewShufflerBuilder(ctx, schema, 4)
	if err != nil {
		log.Fatal(err)
	}

	// Route each row to one of three partitions.
	for i := uint32(0); i < 12; i++ {
		batch, err := record.NewBatch(schema, []record.Column{
			&record.Uint32Column{Values: []uint32{i}},
		})
		if err != nil {
			log.Fatal(err)
		}
		if err := builder.Insert(i%3, batch); err != nil {
			log.Fatal(err)
		}
	}

	shuffler, err := builder.Finish()
	if err != nil {
		log.Fatal(err)
	}
	defer shuffler.Close()

	stream, ok, err := shuffler.KeyIter(ctx, 1)
	if err != nil {
		log.Fatal(err)
	}
	if !ok {
		log.Fatal("partition 1 missing")
	}
	defer stream.Close()

	for stream.Next() {
		col := stream.Batch().Column(0).(*record.Uint32Column)
		fmt.Println(col.Values)
	}
	if err := stream.Err(); err != nil {
		log.Fatal(err)
	}
	// Output:
	// [1]
	// [4]
	// [7]
	// [10]
}
