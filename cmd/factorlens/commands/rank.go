package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/internal/selection"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "팩터 랭킹",
	Long: `후보 레코드 또는 티커 목록을 팩터 모델로 랭킹합니다.

Subcommands:
  candidates  - JSON 후보 레코드 랭킹 (rank-normalize + combine + dip)
  tickers     - 펀더멘털/모멘텀/이벤트 기반 티커 랭킹

Example:
  go run ./cmd/factorlens rank candidates --file candidates.json
  go run ./cmd/factorlens rank tickers AAPL MSFT NVDA --sector-neutral`,
}

var (
	rankCandidatesCmd = &cobra.Command{
		Use:   "candidates",
		Short: "JSON 후보 레코드 랭킹",
		Long: `--file 의 JSON 배열(후보 레코드)을 읽어 점수 내림차순으로 출력합니다.
각 레코드는 입력 필드를 그대로 유지하고 dip_bonus, base_score, score 가 추가됩니다.
growth/profitability/valuation/quality 중 하나라도 빠진 레코드가 있으면
티커 펀더멘털 랭킹으로 전환합니다 (--auto-hydrate=false 로 끄기).
--file - 이면 stdin 에서 읽습니다.`,
		RunE: runRankCandidates,
	}

	rankTickersCmd = &cobra.Command{
		Use:   "tickers [TICKER...]",
		Short: "티커 펀더멘털 랭킹",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRankTickers,
	}

	rankSnapshotCmd = &cobra.Command{
		Use:   "snapshot [RUN_ID]",
		Short: "저장된 랭킹 스냅샷 조회",
		Long: `DATABASE_URL 에 저장된 랭킹 스냅샷을 출력합니다.
RUN_ID 를 생략하면 가장 최근 스냅샷을 보여줍니다 (--mode 로 필터).`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRankSnapshot,
	}

	rankFile        string
	rankJSON        bool
	rankSave        bool
	rankMode        string
	rankAutoHydrate bool
	rankScoring     scoringFlags
)

func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.AddCommand(rankCandidatesCmd)
	rankCmd.AddCommand(rankTickersCmd)
	rankCmd.AddCommand(rankSnapshotCmd)

	rankCandidatesCmd.Flags().StringVarP(&rankFile, "file", "f", "", "candidates JSON file (- for stdin)")
	_ = rankCandidatesCmd.MarkFlagRequired("file")
	rankCandidatesCmd.Flags().BoolVar(&rankSave, "save", false, "store a ranking snapshot (requires DATABASE_URL)")
	rankCandidatesCmd.Flags().BoolVar(&rankAutoHydrate, "auto-hydrate", true, "rank from fundamentals when a record misses a factor")
	rankScoring.register(rankCandidatesCmd)

	rankTickersCmd.Flags().BoolVar(&rankJSON, "json", false, "print records as JSON")
	rankTickersCmd.Flags().BoolVar(&rankSave, "save", false, "store a ranking snapshot (requires DATABASE_URL)")
	rankScoring.register(rankTickersCmd)

	rankSnapshotCmd.Flags().StringVar(&rankMode, "mode", "", "snapshot mode filter (candidates|fundamentals)")
}

func runRankCandidates(cmd *cobra.Command, args []string) error {
	candidates, err := readCandidates(cmd.InOrStdin(), rankFile)
	if err != nil {
		return err
	}

	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	opts, err := rankScoring.apply(cmd, a.engine.DefaultOptions())
	if err != nil {
		return err
	}

	result, err := a.engine.RankAuto(cmd.Context(), candidates, rankAutoHydrate, opts)
	if err != nil {
		return fmt.Errorf("rank candidates: %w", err)
	}
	if result.Hydrated {
		PrintWarning(cmd.ErrOrStderr(), "Candidates missing factors, ranked from fundamentals")
	}

	if rankSave {
		if err := saveSnapshot(cmd, a, func() (string, error) {
			return saveAutoResult(cmd, a, opts, candidates, result)
		}); err != nil {
			return err
		}
	}
	return PrintJSON(cmd.OutOrStdout(), result)
}

// saveAutoResult stores the snapshot in the mode that actually ran
func saveAutoResult(cmd *cobra.Command, a *app, opts selection.Options, candidates []contracts.Candidate, result *selection.AutoResult) (string, error) {
	if result.Hydrated {
		tickers := make([]string, len(result.Records))
		for i, r := range result.Records {
			tickers[i] = r.Ticker
		}
		return a.repo.SaveFundamentals(cmd.Context(), selection.NewSnapshotParams(opts, a.profileHash, tickers), result.Records)
	}
	tickers := make([]string, len(candidates))
	for i, c := range candidates {
		tickers[i] = c.Ticker()
	}
	return a.repo.SaveCandidates(cmd.Context(), selection.NewSnapshotParams(opts, a.profileHash, tickers), result.Candidates)
}

func runRankTickers(cmd *cobra.Command, args []string) error {
	tickers := upperTickers(args)

	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	opts, err := rankScoring.apply(cmd, a.engine.DefaultOptions())
	if err != nil {
		return err
	}

	records, err := a.engine.RankTickersWithFundamentals(cmd.Context(), tickers, opts)
	if err != nil {
		return fmt.Errorf("rank tickers: %w", err)
	}

	if rankSave {
		if err := saveSnapshot(cmd, a, func() (string, error) {
			return a.repo.SaveFundamentals(cmd.Context(), selection.NewSnapshotParams(opts, a.profileHash, tickers), records)
		}); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if rankJSON {
		if records == nil {
			records = []contracts.ScoreRecord{}
		}
		return PrintJSON(out, records)
	}
	PrintScoreTable(out, records)
	return nil
}

func runRankSnapshot(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.repo == nil {
		return errNoDatabase
	}

	var snap *selection.Snapshot
	if len(args) == 1 {
		snap, err = a.repo.Get(cmd.Context(), args[0])
	} else {
		snap, err = a.repo.Latest(cmd.Context(), rankMode)
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	return PrintJSON(cmd.OutOrStdout(), snap)
}

// errNoDatabase is returned by snapshot commands without a database
var errNoDatabase = errors.New("ranking snapshots require DATABASE_URL")

// saveSnapshot stores a snapshot and reports its run id on stderr
func saveSnapshot(cmd *cobra.Command, a *app, save func() (string, error)) error {
	if a.repo == nil {
		return errNoDatabase
	}
	runID, err := save()
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	PrintSuccess(cmd.ErrOrStderr(), "Snapshot saved: "+runID)
	return nil
}

// readCandidates decodes a JSON array of candidate records
func readCandidates(stdin io.Reader, path string) ([]contracts.Candidate, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open candidates: %w", err)
		}
		defer f.Close()
		r = f
	}

	var candidates []contracts.Candidate
	if err := json.NewDecoder(r).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return candidates, nil
}
