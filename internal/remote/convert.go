package remote

import (
	"github.com/cuongbtq/workspace-jobs/internal/runner/domain"
	"github.com/cuongbtq/workspace-jobs/shared/workspace"
)

const (
	jobFormatMultiTask  = "MULTI_TASK"
	taskSourceWorkspace = "WORKSPACE"
)

func toSettings(def domain.JobDefinition) workspace.JobSettings {
	tasks := make([]workspace.JobTask, len(def.Tasks))
	for i, t := range def.Tasks {
		tasks[i] = workspace.JobTask{
			TaskKey:           t.TaskKey,
			ExistingClusterID: t.ClusterID,
			SparkPythonTask: &workspace.SparkPythonTask{
				PythonFile: t.PythonFile,
				Parameters: t.Parameters,
				Source:     taskSourceWorkspace,
			},
		}
	}

	return workspace.JobSettings{
		Name:              def.Name,
		Tasks:             tasks,
		MaxConcurrentRuns: def.MaxConcurrentRuns,
		TimeoutSeconds:    def.TimeoutSeconds,
		Tags:              def.Tags,
		Format:            jobFormatMultiTask,
	}
}

func fromJob(job workspace.Job) domain.Job {
	def := domain.JobDefinition{
		Name:              job.Settings.Name,
		MaxConcurrentRuns: job.Settings.MaxConcurrentRuns,
		TimeoutSeconds:    job.Settings.TimeoutSeconds,
		Tags:              job.Settings.Tags,
	}
	for _, t := range job.Settings.Tasks {
		spec := domain.TaskSpec{TaskKey: t.TaskKey, ClusterID: t.ExistingClusterID}
		if t.SparkPythonTask != nil {
			spec.PythonFile = t.SparkPythonTask.PythonFile
			spec.Parameters = t.SparkPythonTask.Parameters
		}
		def.Tasks = append(def.Tasks, spec)
	}
	return domain.Job{JobID: job.JobID, Definition: def}
}

func fromRunState(s workspace.RunState) domain.RunStatus {
	return domain.RunStatus{
		LifeCycle: domain.LifeCycleState(s.LifeCycleState),
		Result:    domain.ResultState(s.ResultState),
		Message:   s.StateMessage,
	}
}

func fromCluster(c workspace.ClusterInfo) domain.Cluster {
	return domain.Cluster{ClusterID: c.ClusterID, ClusterName: c.ClusterName, State: c.State}
}
