package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dexnode/offerdb/internal/offer"
	"github.com/dexnode/offerdb/internal/store"
)

// Offer set names accepted by --set.
const (
	setSell = "sell"
	setBuy  = "buy"
	setMine = "mine"
)

var setNames = []string{setSell, setBuy, setMine}

// offerSet is what the commands need from any of the three offer sets.
type offerSet interface {
	Name() string
	Count(ctx context.Context, f store.Filter) (int, error)
	DeleteByHash(ctx context.Context, hash offer.Hash) error
	DeleteByTxID(ctx context.Context, txid offer.Hash) error
	Manifest(ctx context.Context, w store.Window) ([]store.ManifestEntry, error)
	SweepExpired(ctx context.Context, now uint64) (int, error)
}

func checkSetName(name string) error {
	for _, n := range setNames {
		if n == name {
			return nil
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("invalid set %q: must be one of %v", name, setNames))
}

func selectSet(st *store.Store, name string) offerSet {
	switch name {
	case setBuy:
		return st.Buy()
	case setMine:
		return st.Mine()
	default:
		return st.Sell()
	}
}

// OffersOptions holds flags shared by the offers subcommands.
type OffersOptions struct {
	*RootOptions
	Set string
}

// NewOffersCommand creates the offers command group.
func NewOffersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OffersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "offers",
		Short: "List, inspect and change offers",
		Long: `Work with one offer set: remote sell offers, remote buy offers, or the
node's own offers.

Examples:
  offerdb offers list --set buy --currency EUR --limit 20
  offerdb offers get --set mine --hash 3f2a...
  offerdb offers add --set sell --file offer.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Set, "set", setSell, "offer set (sell|buy|mine)")

	cmd.AddCommand(newOffersListCommand(opts))
	cmd.AddCommand(newOffersCountCommand(opts))
	cmd.AddCommand(newOffersGetCommand(opts))
	cmd.AddCommand(newOffersAddCommand(opts))
	cmd.AddCommand(newOffersDeleteCommand(opts))
	cmd.AddCommand(newOffersStatusCommand(opts))

	return cmd
}

// filterFlags binds the store.Filter fields to flags.
type filterFlags struct {
	Country  string
	Currency string
	Payment  uint8
	Type     string
	Status   string
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ff.Country, "country", "", "country ISO code")
	cmd.Flags().StringVar(&ff.Currency, "currency", "", "currency ISO code")
	cmd.Flags().Uint8Var(&ff.Payment, "payment", 0, "payment method type")
	cmd.Flags().StringVar(&ff.Type, "type", "", "offer type, local set only (sell|buy)")
	cmd.Flags().StringVar(&ff.Status, "status", "", "offer status, local set only")
}

func (ff *filterFlags) filter() (store.Filter, error) {
	f := store.Filter{
		CountryISO:    ff.Country,
		CurrencyISO:   ff.Currency,
		PaymentMethod: ff.Payment,
	}
	if ff.Type != "" {
		typ, err := offer.ParseType(ff.Type)
		if err != nil {
			return f, err
		}
		f.Type = &typ
	}
	if ff.Status != "" {
		status, err := offer.ParseStatus(ff.Status)
		if err != nil {
			return f, err
		}
		f.Status = &status
	}
	return f, nil
}

// keyFlags selects one offer by hash or by transaction id.
type keyFlags struct {
	Hash string
	TxID string
}

func (kf *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&kf.Hash, "hash", "", "offer hash (hex)")
	cmd.Flags().StringVar(&kf.TxID, "tx", "", "anchoring transaction id (hex)")
}

// parse returns the key and whether it is a transaction id.
func (kf *keyFlags) parse() (offer.Hash, bool, error) {
	switch {
	case kf.Hash != "" && kf.TxID != "":
		return offer.ZeroHash, false, fmt.Errorf("--hash and --tx are mutually exclusive")
	case kf.Hash != "":
		h, err := offer.ParseHash(kf.Hash)
		return h, false, err
	case kf.TxID != "":
		h, err := offer.ParseHash(kf.TxID)
		return h, true, err
	}
	return offer.ZeroHash, false, fmt.Errorf("one of --hash or --tx is required")
}

func newOffersListCommand(opts *OffersOptions) *cobra.Command {
	var ff filterFlags
	var page store.Page

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List offers ordered by hash",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOffersList(opts, cmd, &ff, page)
		},
	}

	ff.register(cmd)
	cmd.Flags().IntVar(&page.Limit, "limit", 0, "maximum rows (0 for all)")
	cmd.Flags().IntVar(&page.Offset, "offset", 0, "rows to skip")

	return cmd
}

func runOffersList(opts *OffersOptions, cmd *cobra.Command, ff *filterFlags, page store.Page) error {
	f := opts.formatter(cmd)
	if err := checkSetName(opts.Set); err != nil {
		return err
	}
	filter, err := ff.filter()
	if err != nil {
		return f.Fail(ExitCommandError, "invalid filter", err)
	}

	return opts.withStore(cmd, f, func(st *store.Store) error {
		ctx := cmd.Context()
		if opts.Set == setMine {
			offers, err := st.Mine().List(ctx, filter, page)
			if err != nil {
				return f.Fail(exitCodeFor(err), "failed to list offers", err)
			}
			if f.JSON() {
				return f.Success(offers)
			}
			for _, o := range offers {
				writeOfferLine(f.Writer, o.Record, fmt.Sprintf("%s/%s", o.Type, o.Status))
			}
			return nil
		}

		set := st.Sell()
		if opts.Set == setBuy {
			set = st.Buy()
		}
		records, err := set.List(ctx, filter, page)
		if err != nil {
			return f.Fail(exitCodeFor(err), "failed to list offers", err)
		}
		if f.JSON() {
			return f.Success(records)
		}
		for _, r := range records {
			writeOfferLine(f.Writer, r, "")
		}
		return nil
	})
}

// writeOfferLine prints the one-line summary used by list.
func writeOfferLine(w io.Writer, r offer.Record, extra string) {
	line := fmt.Sprintf("%s  %s/%s  pm=%d  price=%s  min=%s  v%d  expires=%d",
		r.Hash, r.CountryISO, r.CurrencyISO, r.PaymentMethod,
		offer.FormatAmount(r.Price), offer.FormatAmount(r.MinAmount),
		r.EditingVersion, r.TimeToExpiration)
	if extra != "" {
		line += "  " + extra
	}
	fmt.Fprintln(w, line)
}

// writeOfferDetail prints every field of r, one per line.
func writeOfferDetail(w io.Writer, r offer.Record) {
	fmt.Fprintf(w, "hash:               %s\n", r.Hash)
	if !r.TxID.IsZero() {
		fmt.Fprintf(w, "id_transaction:     %s\n", r.TxID)
	}
	fmt.Fprintf(w, "country/currency:   %s/%s\n", r.CountryISO, r.CurrencyISO)
	fmt.Fprintf(w, "payment_method:     %d\n", r.PaymentMethod)
	fmt.Fprintf(w, "price:              %s\n", offer.FormatAmount(r.Price))
	fmt.Fprintf(w, "min_amount:         %s\n", offer.FormatAmount(r.MinAmount))
	fmt.Fprintf(w, "time_create:        %d\n", r.TimeCreate)
	fmt.Fprintf(w, "time_modification:  %d\n", r.TimeModification)
	fmt.Fprintf(w, "time_to_expiration: %d\n", r.TimeToExpiration)
	fmt.Fprintf(w, "editing_version:    %d\n", r.EditingVersion)
	fmt.Fprintf(w, "short_info:         %s\n", r.ShortInfo)
	if r.Details != "" {
		fmt.Fprintf(w, "details:            %s\n", r.Details)
	}
}

func newOffersCountCommand(opts *OffersOptions) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:           "count",
		Short:         "Count offers matching a filter",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			if err := checkSetName(opts.Set); err != nil {
				return err
			}
			filter, err := ff.filter()
			if err != nil {
				return f.Fail(ExitCommandError, "invalid filter", err)
			}
			return opts.withStore(cmd, f, func(st *store.Store) error {
				n, err := selectSet(st, opts.Set).Count(cmd.Context(), filter)
				if err != nil {
					return f.Fail(exitCodeFor(err), "failed to count offers", err)
				}
				if f.JSON() {
					return f.Success(map[string]int{"count": n})
				}
				return f.Success(n)
			})
		},
	}

	ff.register(cmd)
	return cmd
}

func newOffersGetCommand(opts *OffersOptions) *cobra.Command {
	var kf keyFlags

	cmd := &cobra.Command{
		Use:           "get",
		Short:         "Show one offer by hash or transaction id",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOffersGet(opts, cmd, &kf)
		},
	}

	kf.register(cmd)
	return cmd
}

func runOffersGet(opts *OffersOptions, cmd *cobra.Command, kf *keyFlags) error {
	f := opts.formatter(cmd)
	if err := checkSetName(opts.Set); err != nil {
		return err
	}
	key, byTx, err := kf.parse()
	if err != nil {
		return f.Fail(ExitCommandError, "invalid key", err)
	}

	return opts.withStore(cmd, f, func(st *store.Store) error {
		ctx := cmd.Context()
		if opts.Set == setMine {
			var o offer.MyOffer
			if byTx {
				o, err = st.Mine().Get(ctx, key)
			} else {
				o, err = st.Mine().GetByHash(ctx, key)
			}
			if err != nil {
				return f.Fail(exitCodeFor(err), "failed to get offer", err)
			}
			if f.JSON() {
				return f.Success(o)
			}
			writeOfferDetail(f.Writer, o.Record)
			fmt.Fprintf(f.Writer, "type:               %s\n", o.Type)
			fmt.Fprintf(f.Writer, "status:             %s\n", o.Status)
			return nil
		}

		set := st.Sell()
		if opts.Set == setBuy {
			set = st.Buy()
		}
		var r offer.Record
		if byTx {
			r, err = set.Get(ctx, key)
		} else {
			r, err = set.GetByHash(ctx, key)
		}
		if err != nil {
			return f.Fail(exitCodeFor(err), "failed to get offer", err)
		}
		if f.JSON() {
			return f.Success(r)
		}
		writeOfferDetail(f.Writer, r)
		return nil
	})
}

// AddResult is one entry of the JSON payload of offers add.
type AddResult struct {
	Hash   offer.Hash `json:"hash"`
	Action string     `json:"action"` // "added" | "edited"
}

func newOffersAddCommand(opts *OffersOptions) *cobra.Command {
	var file string
	var edit bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or edit offers from a YAML file",
		Long: `Read one or more YAML documents (separated by ---) and add each offer to
the set. With --edit, replace existing offers instead; the input's
editing_version must be higher than the stored one.

Example input:
  country_iso: US
  currency_iso: USD
  payment_method: 1
  price: "1.5"
  min_amount: "0.1"
  time_create: 1700000000
  time_to_expiration: 1700086400
  short_info: BTC for cash
  type: sell        # local set only`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOffersAdd(opts, cmd, file, edit)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "input file (- for stdin)")
	cmd.Flags().BoolVar(&edit, "edit", false, "replace existing offers")

	return cmd
}

func runOffersAdd(opts *OffersOptions, cmd *cobra.Command, file string, edit bool) error {
	f := opts.formatter(cmd)
	if err := checkSetName(opts.Set); err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if file != "-" {
		fh, err := os.Open(file)
		if err != nil {
			return f.Fail(ExitCommandError, "failed to open input", err)
		}
		defer fh.Close()
		in = fh
	}
	inputs, err := decodeOfferInputs(in)
	if err != nil {
		return f.Fail(ExitCommandError, "invalid input", err)
	}

	action := "added"
	if edit {
		action = "edited"
	}

	return opts.withStore(cmd, f, func(st *store.Store) error {
		ctx := cmd.Context()
		results := make([]AddResult, 0, len(inputs))
		for i, input := range inputs {
			hash, err := applyInput(ctx, st, opts.Set, input, edit)
			if err != nil {
				return f.Fail(exitCodeFor(err), fmt.Sprintf("offer %d: %s failed", i+1, action), err)
			}
			results = append(results, AddResult{Hash: hash, Action: action})
			f.VerboseLog("%s %s", action, hash)
		}
		if f.JSON() {
			return f.Success(results)
		}
		for _, r := range results {
			fmt.Fprintf(f.Writer, "%s %s\n", r.Action, r.Hash)
		}
		return nil
	})
}

// applyInput converts input for the named set and adds or edits it.
func applyInput(ctx context.Context, st *store.Store, set string, input OfferInput, edit bool) (offer.Hash, error) {
	if set == setMine {
		o, err := input.MyOffer()
		if err != nil {
			return offer.ZeroHash, err
		}
		if edit {
			return o.Hash, st.Mine().Edit(ctx, o)
		}
		return o.Hash, st.Mine().Add(ctx, o)
	}

	r, err := input.Record()
	if err != nil {
		return offer.ZeroHash, err
	}
	target := st.Sell()
	if set == setBuy {
		target = st.Buy()
	}
	if edit {
		return r.Hash, target.Edit(ctx, r)
	}
	return r.Hash, target.Add(ctx, r)
}

func newOffersDeleteCommand(opts *OffersOptions) *cobra.Command {
	var kf keyFlags

	cmd := &cobra.Command{
		Use:           "delete",
		Short:         "Delete one offer by hash or transaction id",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			if err := checkSetName(opts.Set); err != nil {
				return err
			}
			key, byTx, err := kf.parse()
			if err != nil {
				return f.Fail(ExitCommandError, "invalid key", err)
			}
			return opts.withStore(cmd, f, func(st *store.Store) error {
				set := selectSet(st, opts.Set)
				if byTx {
					err = set.DeleteByTxID(cmd.Context(), key)
				} else {
					err = set.DeleteByHash(cmd.Context(), key)
				}
				if err != nil {
					return f.Fail(exitCodeFor(err), "failed to delete offer", err)
				}
				if f.JSON() {
					return f.Success(map[string]string{"deleted": key.String()})
				}
				return f.Success("deleted " + key.String())
			})
		},
	}

	kf.register(cmd)
	return cmd
}

func newOffersStatusCommand(opts *OffersOptions) *cobra.Command {
	var kf keyFlags

	cmd := &cobra.Command{
		Use:           "status <status>",
		Short:         "Set the status of a local offer",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			if opts.Set != setMine {
				return NewExitError(ExitCommandError, "status applies only to --set mine")
			}
			status, err := offer.ParseStatus(args[0])
			if err != nil {
				return f.Fail(ExitCommandError, "invalid status", err)
			}
			key, byTx, err := kf.parse()
			if err != nil {
				return f.Fail(ExitCommandError, "invalid key", err)
			}
			return opts.withStore(cmd, f, func(st *store.Store) error {
				if byTx {
					err = st.Mine().EditStatus(cmd.Context(), key, status)
				} else {
					err = st.Mine().EditStatusByHash(cmd.Context(), key, status)
				}
				if err != nil {
					return f.Fail(exitCodeFor(err), "failed to set status", err)
				}
				if f.JSON() {
					return f.Success(map[string]string{"hash": key.String(), "status": status.String()})
				}
				return f.Success(fmt.Sprintf("%s %s", key, status))
			})
		},
	}

	kf.register(cmd)
	return cmd
}
