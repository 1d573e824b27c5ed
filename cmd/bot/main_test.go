// cmd/bot/main_test.go
package main

import "testing"

func TestPickCommand(t *testing.T) {
	tests := []struct {
		name        string
		status      bool
		resetErrors bool
		export      string
		file        string
		run         bool
		want        command
	}{
		{name: "no flags prints usage", want: cmdUsage},
		{name: "file alone imports and runs", file: "urls.csv", want: cmdRun},
		{name: "file with explicit run", file: "urls.csv", run: true, want: cmdRun},
		{name: "run without a file", run: true, want: cmdRun},
		{name: "status is standalone", status: true, file: "urls.csv", want: cmdStatus},
		{name: "reset errors is standalone", resetErrors: true, want: cmdResetErrors},
		{name: "export is standalone", export: "out.csv", run: true, want: cmdExport},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := pickCommand(tc.status, tc.resetErrors, tc.export, tc.file, tc.run)
			if got != tc.want {
				t.Errorf("pickCommand = %v, want %v", got, tc.want)
			}
		})
	}
}
