// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

/*
Package supervisor runs long-lived genecascade services under suture v4.

The tree has two layers:

	RootSupervisor ("genecascade")
	├── PipelineSupervisor ("pipeline-layer")
	│   └── BatchService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (when metrics.addr is set)

The batch service terminates the whole tree once the batch finishes, so the
status server lives exactly as long as the run it reports on. A crashed HTTP
server is restarted without disturbing the pipeline layer.

Supervisor events are logged through the zerolog-backed slog handler from the
logging package:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	batchSvc := services.NewBatchService(coordinator)
	tree.AddPipelineService(batchSvc)
	tree.AddAPIService(services.NewHTTPServerService(server, 5*time.Second))
	err = tree.Serve(ctx)
	res, runErr := batchSvc.Result()
*/
package supervisor
