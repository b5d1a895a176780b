package routine

import (
	"timeledger/pkg/queue"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

var Module = fx.Module("routine.service",
	fx.Provide(NewMaterializer),
)

var Worker = fx.Module("routine.worker",
	fx.Provide(NewScheduler),
	fx.Invoke(
		registerHandlers,
		StartScheduler,
	),
)

func registerHandlers(mux *asynq.ServeMux, m *Materializer) {
	mux.HandleFunc(queue.RoutineMaterializeDay, m.HandleMaterializeTask)
}
