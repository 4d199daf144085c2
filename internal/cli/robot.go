package cli

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRobotCmd создаёт группу команд для регистрации роботов на портале.
func NewRobotCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "robot",
		Short: "Manage business-process robots on the portal",
	}

	cmd.AddCommand(
		newRobotListCmd(env),
		newRobotInstallCmd(env),
		newRobotUninstallCmd(env),
	)

	return cmd
}

// robotStatus — строка вывода robot list.
type robotStatus struct {
	Code      string `json:"code"`
	Name      string `json:"name,omitempty"`
	Handler   string `json:"handler,omitempty"`
	Installed bool   `json:"installed"`
}

func newRobotListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List manifest robots and their installation status",
		RunE: func(cmd *cobra.Command, args []string) error {
			portal, err := env.Portal()
			if err != nil {
				return err
			}
			out := env.Output()

			installed, err := portal.Installed(cmd.Context())
			if err != nil {
				return err
			}

			var statuses []robotStatus
			known := make(map[string]bool)

			// Без манифеста показываем только то, что стоит на портале
			if m, err := env.Manifest(); err == nil {
				for _, r := range m.Robots {
					known[r.Code] = true
					statuses = append(statuses, robotStatus{
						Code:      r.Code,
						Name:      r.Name,
						Handler:   m.Handler(r),
						Installed: slices.Contains(installed, r.Code),
					})
				}
			}
			for _, code := range installed {
				if !known[code] {
					statuses = append(statuses, robotStatus{Code: code, Installed: true})
				}
			}

			rows := make([][]string, len(statuses))
			for i, s := range statuses {
				rows[i] = []string{s.Code, s.Name, strconv.FormatBool(s.Installed), s.Handler}
			}
			out.Print([]string{"CODE", "NAME", "INSTALLED", "HANDLER"}, rows, statuses)
			return nil
		},
	}
}

func newRobotInstallCmd(env *Env) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "install [CODE...]",
		Short: "Install robots from the manifest (all when no code given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := env.Manifest()
			if err != nil {
				return err
			}
			robots, err := selectRobots(m, args)
			if err != nil {
				return err
			}
			portal, err := env.Portal()
			if err != nil {
				return err
			}
			out := env.Output()

			for _, r := range robots {
				if err := portal.Install(cmd.Context(), m, r, force); err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Robot installed: %s (%s)", r.Code, m.Handler(r)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Reinstall robots that are already installed")

	return cmd
}

func newRobotUninstallCmd(env *Env) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "uninstall [CODE...]",
		Short: "Uninstall robots by code",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("specify robot codes or --all")
			}
			portal, err := env.Portal()
			if err != nil {
				return err
			}
			out := env.Output()

			codes := args
			if all {
				if codes, err = portal.Installed(cmd.Context()); err != nil {
					return err
				}
			}

			for _, code := range codes {
				if err := portal.Uninstall(cmd.Context(), code); err != nil {
					return err
				}
				out.Success("Robot uninstalled: " + code)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Uninstall every robot installed by the application")

	return cmd
}

// selectRobots возвращает роботов манифеста по кодам, всех — если кодов нет.
func selectRobots(m *Manifest, codes []string) ([]RobotSpec, error) {
	if len(codes) == 0 {
		return m.Robots, nil
	}

	robots := make([]RobotSpec, 0, len(codes))
	for _, code := range codes {
		r, ok := m.Robot(code)
		if !ok {
			return nil, fmt.Errorf("robot %q not found in manifest", code)
		}
		robots = append(robots, r)
	}
	return robots, nil
}
