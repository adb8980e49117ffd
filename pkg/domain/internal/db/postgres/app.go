package postgres

import (
	"context"

	kpool "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool"
	"github.com/taskflow-dev/tugboat/pkg/domain"
)

// GetApp reads apps by name.
//
// Names hitting no row are simply absent from the returned map.
func GetApp(ctx context.Context, conn kpool.Queryer, names []string) (map[string]domain.App, error) {
	rows, err := conn.Query(
		ctx,
		`
		select
			"name", "env", "namespace", "replicas",
			"cpu_request", "memory_request", "cpu_limit", "memory_limit",
			coalesce("ingress_host", ''), "ingress_tls",
			coalesce("storage_size", ''),
			"monitoring", "active_color",
			"created_at", "updated_at"
		from "app"
		where "name" = any($1)
		`,
		names,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string]domain.App{}
	for rows.Next() {
		var (
			app         domain.App
			env         string
			ingressHost string
			ingressTLS  bool
			storageSize string
			activeColor string
		)
		if err := rows.Scan(
			&app.Name, &env, &app.Namespace, &app.Replicas,
			&app.Resources.CPURequest, &app.Resources.MemoryRequest,
			&app.Resources.CPULimit, &app.Resources.MemoryLimit,
			&ingressHost, &ingressTLS,
			&storageSize,
			&app.Monitoring, &activeColor,
			&app.CreatedAt, &app.UpdatedAt,
		); err != nil {
			return nil, err
		}

		if app.Env, err = domain.AsEnv(env); err != nil {
			return nil, err
		}
		if app.ActiveColor, err = domain.AsColor(activeColor); err != nil {
			return nil, err
		}
		if ingressHost != "" {
			app.Ingress = &domain.Ingress{Host: ingressHost, TLS: ingressTLS}
		}
		if storageSize != "" {
			app.Storage = &domain.Storage{Size: storageSize}
		}

		result[app.Name] = app
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
