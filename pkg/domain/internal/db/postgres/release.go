package postgres

import (
	"context"
	"time"

	kpool "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool"
	"github.com/taskflow-dev/tugboat/pkg/domain"
)

// GetRelease reads releases by id, config, gates and canary plan included.
//
// Ids hitting no row are simply absent from the returned map.
func GetRelease(ctx context.Context, conn kpool.Queryer, releaseIds []string) (map[string]domain.Release, error) {
	result := map[string]domain.Release{}
	{
		rows, err := conn.Query(
			ctx,
			`
			select
				"release_id", "app_name", "env", "image",
				"strategy", "timeout_ms", "created_at"
			from "release"
			inner join "app" on "app"."name" = "release"."app_name"
			where "release_id" = any($1)
			`,
			releaseIds,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				release   domain.Release
				env       string
				strategy  string
				timeoutMs int64
			)
			if err := rows.Scan(
				&release.Id, &release.AppName, &env, &release.Image,
				&strategy, &timeoutMs, &release.CreatedAt,
			); err != nil {
				return nil, err
			}
			if release.Env, err = domain.AsEnv(env); err != nil {
				return nil, err
			}
			if release.Strategy, err = domain.AsStrategy(strategy); err != nil {
				return nil, err
			}
			release.Timeout = time.Duration(timeoutMs) * time.Millisecond
			release.Config = map[string]string{}

			result[release.Id] = release
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	{
		rows, err := conn.Query(
			ctx,
			`
			select "release_id", "key", "value" from "release_config"
			where "release_id" = any($1)
			order by "release_id", "key"
			`,
			releaseIds,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var releaseId, key, value string
			if err := rows.Scan(&releaseId, &key, &value); err != nil {
				return nil, err
			}
			if release, ok := result[releaseId]; ok {
				release.Config[key] = value
			}
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	{
		rows, err := conn.Query(
			ctx,
			`
			select "release_id", "kind" from "release_gate"
			where "release_id" = any($1)
			order by "release_id", "kind"
			`,
			releaseIds,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var releaseId, kind string
			if err := rows.Scan(&releaseId, &kind); err != nil {
				return nil, err
			}
			gateKind, err := domain.AsGateKind(kind)
			if err != nil {
				return nil, err
			}
			if release, ok := result[releaseId]; ok {
				release.Gates = append(release.Gates, gateKind)
				result[releaseId] = release
			}
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	{
		rows, err := conn.Query(
			ctx,
			`
			select "release_id", "percent", "window_ms" from "canary_phase"
			where "release_id" = any($1)
			order by "release_id", "index"
			`,
			releaseIds,
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				releaseId string
				percent   int
				windowMs  int64
			)
			if err := rows.Scan(&releaseId, &percent, &windowMs); err != nil {
				return nil, err
			}
			if release, ok := result[releaseId]; ok {
				release.CanaryPlan = append(release.CanaryPlan, domain.CanaryPhase{
					Percent: percent,
					Window:  time.Duration(windowMs) * time.Millisecond,
				})
				result[releaseId] = release
			}
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	return result, nil
}
