package postgres_test

import (
	"context"
	"errors"
	"testing"

	kpgmock "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool/mock"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/domain/garbage/db/postgres"
)

func TestPop(t *testing.T) {
	ctx := context.Background()

	t.Run("it pops one garbage and hands it to the callback", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`delete from "garbage"`).Returns(
			kpgmock.NewRows("namespace", "kind", "name").
				Add("ping", "deployment", "ping-api-green"),
		)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		var got domain.Garbage
		testee := postgres.New(pool)
		popped, err := testee.Pop(ctx, func(g domain.Garbage) error {
			got = g
			return nil
		})
		if err != nil {
			t.Fatalf("pop failed: %v", err)
		}
		if !popped {
			t.Fatal("nothing was popped")
		}
		if !tx.Committed {
			t.Error("pop did not commit")
		}

		want := domain.Garbage{
			Namespace: "ping", Kind: domain.GarbageDeployment, Name: "ping-api-green",
		}
		if !got.Equal(want) {
			t.Errorf("garbage unmatch: got %+v, want %+v", got, want)
		}
	})

	t.Run("it reports no pop over an empty table", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`delete from "garbage"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		popped, err := testee.Pop(ctx, func(domain.Garbage) error {
			t.Fatal("callback should not run")
			return nil
		})
		if err != nil {
			t.Fatalf("pop failed: %v", err)
		}
		if popped {
			t.Error("popped over an empty table")
		}
	})

	t.Run("it rolls the pop back when the callback fails", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`delete from "garbage"`).Returns(
			kpgmock.NewRows("namespace", "kind", "name").
				Add("ping", "pvc", "ping-api-storage"),
		)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		boom := errors.New("cluster says no")
		testee := postgres.New(pool)
		popped, err := testee.Pop(ctx, func(domain.Garbage) error {
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("unexpected error: %v", err)
		}
		if popped {
			t.Error("failed pop reported success")
		}
		if tx.Committed {
			t.Error("failed pop committed")
		}
		if !tx.RolledBack {
			t.Error("failed pop did not roll back")
		}
	})

	t.Run("it refuses a record with an unknown kind", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`delete from "garbage"`).Returns(
			kpgmock.NewRows("namespace", "kind", "name").
				Add("ping", "volume", "ping-api-storage"),
		)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		_, err := testee.Pop(ctx, func(domain.Garbage) error {
			t.Fatal("callback should not run")
			return nil
		})
		if !errors.Is(err, domain.ErrUnknownGarbageKind) {
			t.Fatalf("unexpected error: %v", err)
		}
		if tx.Committed {
			t.Error("failed pop committed")
		}
	})
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("it records each garbage item", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`insert into "garbage"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		err := testee.Add(
			ctx,
			domain.Garbage{Namespace: "ping", Kind: domain.GarbageDeployment, Name: "ping-api-green"},
			domain.Garbage{Namespace: "ping", Kind: domain.GarbageConfigMap, Name: "ping-api-config-green"},
		)
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if !tx.Committed {
			t.Error("add did not commit")
		}

		if len(tx.Calls) != 2 {
			t.Fatalf("unexpected statement count: %d", len(tx.Calls))
		}
		if kind := tx.Calls[0].Args[1]; kind != "deployment" {
			t.Errorf("kind unmatch: %v", kind)
		}
		if name := tx.Calls[1].Args[2]; name != "ping-api-config-green" {
			t.Errorf("name unmatch: %v", name)
		}
	})

	t.Run("it rolls back when an insert fails", func(t *testing.T) {
		boom := errors.New("connection lost")
		tx := kpgmock.NewTx()
		tx.On(`insert into "garbage"`).Fails(boom)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		err := testee.Add(
			ctx,
			domain.Garbage{Namespace: "ping", Kind: domain.GarbagePVC, Name: "ping-api-data"},
		)
		if !errors.Is(err, boom) {
			t.Fatalf("unexpected error: %v", err)
		}
		if tx.Committed {
			t.Error("failed add committed")
		}
	})
}
